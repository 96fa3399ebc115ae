package service

import (
	"context"
	"testing"

	"rentals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFavoriteService_Toggle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	catalog := NewCatalogService(db, nil, nil, fastRetry, testLogger())
	svc := NewFavoriteService(db, db, testLogger())

	a := newListing()
	b := newListing()
	require.NoError(t, catalog.CreateProperty(ctx, owner, a))
	require.NoError(t, catalog.CreateProperty(ctx, owner, b))

	favorites, err := svc.GetFavorites(ctx, guest)
	require.NoError(t, err)
	assert.NotNil(t, favorites)
	assert.Empty(t, favorites)

	on, err := svc.ToggleFavorite(ctx, guest, a.ID)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = svc.ToggleFavorite(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.True(t, on)

	favorites, err = svc.GetFavorites(ctx, guest)
	require.NoError(t, err)
	assert.Len(t, favorites, 2)

	// второй переключатель возвращает исходное состояние
	on, err = svc.ToggleFavorite(ctx, guest, a.ID)
	require.NoError(t, err)
	assert.False(t, on)

	favorites, err = svc.GetFavorites(ctx, guest)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, b.ID, favorites[0].ID)

	// избранное другого пользователя не затронуто
	other, err := svc.GetFavorites(ctx, models.Identity{UserID: "u-other"})
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, catalog.DeleteProperty(ctx, b.ID))
	favorites, err = svc.GetFavorites(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestFavoriteService_Errors(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	svc := NewFavoriteService(store, store, testLogger())

	store.On("GetProperty", mock.Anything, "missing").Return(nil, models.ErrPropertyNotFound)

	_, err := svc.ToggleFavorite(ctx, guest, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	store.AssertNotCalled(t, "AddFavorite", mock.Anything, mock.Anything)

	_, err = svc.ToggleFavorite(ctx, models.Identity{}, "p1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.GetFavorites(ctx, models.Identity{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUserService_Remember(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	svc := NewUserService(store, testLogger())

	store.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.ID == guest.UserID && u.Name == guest.Name && u.Email == guest.Email && !u.UpdatedAt.IsZero()
	})).Return(nil)

	require.NoError(t, svc.Remember(ctx, guest))
	store.AssertExpectations(t)

	assert.ErrorIs(t, svc.Remember(ctx, models.Identity{}), models.ErrUnauthorized)
}
