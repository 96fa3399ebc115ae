package mongodb

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"rentals/internal/config"
	"rentals/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSearchFilter(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, SearchFilter(models.PropertyFilter{Location: "  "}))
	})

	t.Run("LocationIsEscapedSubstring", func(t *testing.T) {
		f := SearchFilter(models.PropertyFilter{Location: " St. John (North) "})
		re := f["location"].(bson.M)["$regex"].(primitive.Regex)
		assert.Equal(t, `St\. John \(North\)`, re.Pattern)
		assert.Equal(t, "i", re.Options)
		assert.NotContains(t, f, "type")
	})

	t.Run("TypeIsAnchored", func(t *testing.T) {
		f := SearchFilter(models.PropertyFilter{Type: "Villa"})
		re := f["type"].(bson.M)["$regex"].(primitive.Regex)
		assert.Equal(t, "^Villa$", re.Pattern)
		assert.Equal(t, "i", re.Options)
	})

	t.Run("EmailIsAnchored", func(t *testing.T) {
		f := emailFilter(" a+b@example.com ")
		re := f["email"].(bson.M)["$regex"].(primitive.Regex)
		assert.Equal(t, `^a\+b@example\.com$`, re.Pattern)
	})
}

// TestStoreIntegration runs against a real server when RENTALS_TEST_MONGO_URI is set.
func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("RENTALS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RENTALS_TEST_MONGO_URI not set")
	}

	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	store, err := Connect(ctx, config.MongoConfig{
		URI:            uri,
		Name:           "rentals_test_" + uuid.NewString()[:8],
		ConnectTimeout: 5 * time.Second,
	}, &logger)
	require.NoError(t, err)
	defer func() {
		_ = store.properties.Database().Drop(ctx)
		store.Close()
	}()

	p := &models.Property{
		Name: "Loft", Type: "Apartment", Price: 100, Location: "Lisbon, Alfama",
		Description: "test", Email: "Owner@Example.com",
		Images: []models.Image{{ContentType: "image/png", Data: []byte{1, 2, 3}}},
	}
	p.ApplyDefaults()
	require.NoError(t, store.CreateProperty(ctx, p))

	got, err := store.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Images[0].Data)

	found, err := store.SearchProperties(ctx, models.PropertyFilter{Location: "alfama", Type: "apartment"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Nil(t, found[0].Images[0].Data)

	byEmail, err := store.GetPropertiesByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Len(t, byEmail, 1)

	stale := *got
	_, err = got.Rate(5, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.ReplaceProperty(ctx, got))
	assert.ErrorIs(t, store.ReplaceProperty(ctx, &stale), models.ErrVersionConflict)

	b := &models.Booking{PropertyID: p.ID, UserID: "u1", CheckIn: time.Now(), CheckOut: time.Now().Add(48 * time.Hour)}
	require.NoError(t, store.CreateBooking(ctx, b))
	require.NoError(t, store.UpdateBookingStatus(ctx, b.ID, models.StatusPending, models.StatusConfirmed))
	assert.ErrorIs(t, store.UpdateBookingStatus(ctx, b.ID, models.StatusPending, models.StatusRejected), models.ErrInvalidTransition)

	require.NoError(t, store.AddFavorite(ctx, &models.Favorite{UserID: "u1", PropertyID: p.ID}))
	require.NoError(t, store.AddFavorite(ctx, &models.Favorite{UserID: "u1", PropertyID: p.ID}))
	ids, err := store.GetFavoritePropertyIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids)

	require.NoError(t, store.DeleteProperty(ctx, p.ID))
	assert.ErrorIs(t, store.DeleteProperty(ctx, p.ID), models.ErrNotFound)
}
