package domain

import (
	"context"
	"time"

	"rentals/internal/models"
)

type PropertyRepository interface {
	CreateProperty(ctx context.Context, property *models.Property) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetPropertyByReviewID(ctx context.Context, reviewID string) (*models.Property, error)
	// ReplaceProperty writes the whole document if its stored version still
	// equals property.Version, then bumps the version.
	ReplaceProperty(ctx context.Context, property *models.Property) error
	DeleteProperty(ctx context.Context, id string) error
	SearchProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error)
	GetPropertiesByIDs(ctx context.Context, ids []string) ([]*models.Property, error)
	GetPropertiesByEmail(ctx context.Context, email string) ([]*models.Property, error)
	GetPropertySummaries(ctx context.Context, ids []string) (map[string]models.PropertySummary, error)
	CountProperties(ctx context.Context) (int64, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	// UpdateBookingStatus moves a booking from one status to another only if it
	// is still in the from status.
	UpdateBookingStatus(ctx context.Context, id, from, to string) error
	GetBookings(ctx context.Context) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	GetPropertyBookings(ctx context.Context, propertyID string) ([]*models.Booking, error)
	GetActiveBookings(ctx context.Context, propertyID string) ([]*models.Booking, error)
}

type FavoriteRepository interface {
	AddFavorite(ctx context.Context, favorite *models.Favorite) error
	RemoveFavorite(ctx context.Context, userID, propertyID string) (bool, error)
	GetFavoritePropertyIDs(ctx context.Context, userID string) ([]string, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Store is a complete persistence backend.
type Store interface {
	PropertyRepository
	BookingRepository
	FavoriteRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}

// Unlock releases a lock obtained from a Locker.
type Unlock func(ctx context.Context) error

// Locker provides mutual exclusion scoped by key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

type SearchCache interface {
	GetSearch(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, bool)
	SetSearch(ctx context.Context, filter models.PropertyFilter, properties []*models.Property) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type CatalogService interface {
	CreateProperty(ctx context.Context, owner models.Identity, property *models.Property) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	UpdateProperty(ctx context.Context, id string, patch models.PropertyPatch) (*models.Property, error)
	DeleteProperty(ctx context.Context, id string) error
	SearchProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error)
	CountProperties(ctx context.Context) (int64, error)
	GetPropertiesByEmail(ctx context.Context, email string) ([]*models.Property, error)
	CheckAvailability(ctx context.Context, id string, checkIn, checkOut time.Time) (bool, error)
	CalculateTotalPrice(ctx context.Context, id string, days int) (float64, error)
	GetImage(ctx context.Context, id string, index int) (*models.Image, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, user models.Identity, propertyID string, checkIn, checkOut time.Time, message string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, actor models.Identity, id string) (*models.Booking, error)
	RejectBooking(ctx context.Context, actor models.Identity, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, actor models.Identity, id, status string) (*models.Booking, error)
	GetBookings(ctx context.Context) ([]models.BookingView, error)
	GetUserBookings(ctx context.Context, userID string) ([]models.BookingView, error)
	GetPropertyBookings(ctx context.Context, propertyID string) ([]models.BookingView, error)
	GetBookingView(ctx context.Context, id string) (*models.BookingView, error)
}

type ReviewService interface {
	AddReview(ctx context.Context, user models.Identity, propertyID string, rating int, title, comment string) (*models.Property, error)
	RateProperty(ctx context.Context, propertyID string, rating int) (float64, error)
	MarkHelpful(ctx context.Context, propertyID, reviewID string) (int, error)
	MarkHelpfulByReview(ctx context.Context, reviewID string) (int, error)
}

type FavoriteService interface {
	ToggleFavorite(ctx context.Context, user models.Identity, propertyID string) (bool, error)
	GetFavorites(ctx context.Context, user models.Identity) ([]*models.Property, error)
}

type UserService interface {
	Remember(ctx context.Context, identity models.Identity) error
}
