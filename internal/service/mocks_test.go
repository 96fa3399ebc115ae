package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"rentals/internal/database"
	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

var _ domain.Store = (*mockStore)(nil)

func (m *mockStore) CreateProperty(ctx context.Context, p *models.Property) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *mockStore) GetPropertyByReviewID(ctx context.Context, reviewID string) (*models.Property, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *mockStore) ReplaceProperty(ctx context.Context, p *models.Property) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockStore) DeleteProperty(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) SearchProperties(ctx context.Context, f models.PropertyFilter) ([]*models.Property, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Property), args.Error(1)
}
func (m *mockStore) GetPropertiesByIDs(ctx context.Context, ids []string) ([]*models.Property, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Property), args.Error(1)
}
func (m *mockStore) GetPropertiesByEmail(ctx context.Context, email string) ([]*models.Property, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Property), args.Error(1)
}
func (m *mockStore) GetPropertySummaries(ctx context.Context, ids []string) (map[string]models.PropertySummary, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.PropertySummary), args.Error(1)
}
func (m *mockStore) CountProperties(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockStore) UpdateBookingStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}
func (m *mockStore) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockStore) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockStore) GetPropertyBookings(ctx context.Context, propertyID string) ([]*models.Booking, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockStore) GetActiveBookings(ctx context.Context, propertyID string) ([]*models.Booking, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockStore) AddFavorite(ctx context.Context, f *models.Favorite) error {
	return m.Called(ctx, f).Error(0)
}
func (m *mockStore) RemoveFavorite(ctx context.Context, userID, propertyID string) (bool, error) {
	args := m.Called(ctx, userID, propertyID)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) GetFavoritePropertyIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockStore) UpsertUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.User), args.Error(1)
}
func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error {
	return m.Called(et, p).Error(0)
}

type mockLocker struct {
	mock.Mock
	unlocked int
}

func (m *mockLocker) Lock(ctx context.Context, key string) (domain.Unlock, error) {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.unlocked++
		return nil
	}, nil
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetSearch(ctx context.Context, f models.PropertyFilter) ([]*models.Property, bool) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]*models.Property), args.Bool(1)
}
func (m *mockCache) SetSearch(ctx context.Context, f models.PropertyFilter, p []*models.Property) error {
	return m.Called(ctx, f, p).Error(0)
}
func (m *mockCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func setupTestDB(t *testing.T) *database.DB {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "rentals.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newListing() *models.Property {
	p := &models.Property{
		Name:        "Sea view",
		Type:        "Apartment",
		Price:       100,
		Location:    "Lisbon, Alfama",
		Description: "two rooms near the river",
		Email:       "owner@example.com",
	}
	p.ApplyDefaults()
	return p
}
