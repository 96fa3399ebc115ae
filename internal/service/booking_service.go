package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentals/internal/config"
	"rentals/internal/domain"
	"rentals/internal/events"
	"rentals/internal/metrics"
	"rentals/internal/models"

	"github.com/rs/zerolog"
)

var _ domain.BookingService = (*BookingService)(nil)

// BookingStore is the part of the store the booking ledger needs.
type BookingStore interface {
	domain.BookingRepository
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetPropertySummaries(ctx context.Context, ids []string) (map[string]models.PropertySummary, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// BookingPolicy holds the switches of the booking ledger.
type BookingPolicy struct {
	// SerializePerProperty takes a per-property lock around availability check and insert
	SerializePerProperty bool
	// RejectOverlapping refuses stays intersecting a pending or confirmed booking
	RejectOverlapping bool
	// StatusPolicy is config.StatusPolicyOpen or config.StatusPolicyOwner
	StatusPolicy string
	// Admins may change any booking status under the owner policy (emails or user ids)
	Admins []string
}

// BookingPolicyFromConfig builds the policy from a loaded configuration.
func BookingPolicyFromConfig(cfg config.BookingConfig) BookingPolicy {
	policy := BookingPolicy{
		SerializePerProperty: true,
		RejectOverlapping:    true,
		StatusPolicy:         cfg.StatusPolicy,
		Admins:               cfg.Admins,
	}
	if cfg.SerializePerProperty != nil {
		policy.SerializePerProperty = *cfg.SerializePerProperty
	}
	if cfg.RejectOverlapping != nil {
		policy.RejectOverlapping = *cfg.RejectOverlapping
	}
	if policy.StatusPolicy == "" {
		policy.StatusPolicy = config.StatusPolicyOpen
	}
	return policy
}

type BookingService struct {
	store    BookingStore
	locker   domain.Locker
	eventBus domain.EventPublisher
	policy   BookingPolicy
	logger   *zerolog.Logger
}

func NewBookingService(store BookingStore, locker domain.Locker, eventBus domain.EventPublisher, policy BookingPolicy, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:    store,
		locker:   locker,
		eventBus: eventBus,
		policy:   policy,
		logger:   logger,
	}
}

func lockKey(propertyID string) string {
	return "property:" + propertyID
}

func (s *BookingService) CreateBooking(ctx context.Context, user models.Identity, propertyID string, checkIn, checkOut time.Time, message string) (*models.Booking, error) {
	if err := requireIdentity(user); err != nil {
		return nil, err
	}
	if err := models.ValidateStay(checkIn, checkOut); err != nil {
		return nil, err
	}

	// Проверка и вставка под одной блокировкой объекта
	if s.policy.SerializePerProperty && s.locker != nil {
		unlock, err := s.locker.Lock(ctx, lockKey(propertyID))
		if err != nil {
			return nil, fmt.Errorf("failed to lock property %s: %w", propertyID, err)
		}
		defer func() {
			// снимаем блокировку даже если запрос уже отменен
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn().Err(err).Str("property_id", propertyID).Msg("Failed to release property lock")
			}
		}()
	}

	property, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if !property.CheckAvailability(checkIn, checkOut) {
		metrics.IncBooking("unavailable")
		return nil, models.ErrNotAvailable
	}

	if s.policy.RejectOverlapping {
		active, err := s.store.GetActiveBookings(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		for _, existing := range active {
			if existing.Overlaps(checkIn, checkOut) {
				metrics.IncBooking("overlap")
				return nil, fmt.Errorf("%w (overlaps booking %s)", models.ErrNotAvailable, existing.ID)
			}
		}
	}

	booking := &models.Booking{
		PropertyID: propertyID,
		UserID:     user.UserID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Message:    strings.TrimSpace(message),
		Status:     models.StatusPending,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBooking("created")
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("property_id", propertyID).
		Str("user_id", user.UserID).
		Msg("Booking created")
	s.publishEvent(events.EventBookingCreated, booking, user.UserID)

	return booking, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, actor models.Identity, id string) (*models.Booking, error) {
	return s.UpdateBookingStatus(ctx, actor, id, models.StatusConfirmed)
}

func (s *BookingService) RejectBooking(ctx context.Context, actor models.Identity, id string) (*models.Booking, error) {
	return s.UpdateBookingStatus(ctx, actor, id, models.StatusRejected)
}

// UpdateBookingStatus moves a pending booking to confirmed or rejected.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, actor models.Identity, id, status string) (*models.Booking, error) {
	if !models.IsBookingStatus(status) {
		return nil, validationErr("unknown booking status %q", status)
	}

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, booking); err != nil {
		return nil, err
	}

	if !models.CanTransition(booking.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, booking.Status, status)
	}

	// Условное обновление: проиграем гонку, если статус уже сменили
	if err := s.store.UpdateBookingStatus(ctx, id, booking.Status, status); err != nil {
		return nil, err
	}
	booking.Status = status
	booking.UpdatedAt = time.Now().UTC()

	metrics.IncBooking(status)
	s.logger.Info().
		Str("booking_id", id).
		Str("status", status).
		Str("changed_by", actor.UserID).
		Msg("Booking status changed")

	eventType := events.EventBookingConfirmed
	if status == models.StatusRejected {
		eventType = events.EventBookingRejected
	}
	s.publishEvent(eventType, booking, actor.UserID)

	return booking, nil
}

// authorize enforces the configured status policy. The open policy lets any
// caller through.
func (s *BookingService) authorize(ctx context.Context, actor models.Identity, booking *models.Booking) error {
	if s.policy.StatusPolicy != config.StatusPolicyOwner {
		return nil
	}
	if err := requireIdentity(actor); err != nil {
		return err
	}
	if s.isAdmin(actor) {
		return nil
	}

	summaries, err := s.store.GetPropertySummaries(ctx, []string{booking.PropertyID})
	if err != nil {
		return err
	}
	if property, ok := summaries[booking.PropertyID]; ok {
		if property.Owner != "" && property.Owner == actor.UserID {
			return nil
		}
		if actor.Email != "" && strings.EqualFold(property.Email, actor.Email) {
			return nil
		}
	}
	return fmt.Errorf("%w: only the property owner may change booking %s", models.ErrForbidden, booking.ID)
}

func (s *BookingService) isAdmin(actor models.Identity) bool {
	for _, admin := range s.policy.Admins {
		if admin == actor.UserID || (actor.Email != "" && strings.EqualFold(admin, actor.Email)) {
			return true
		}
	}
	return false
}

func (s *BookingService) GetBookings(ctx context.Context) ([]models.BookingView, error) {
	bookings, err := s.store.GetBookings(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolveViews(ctx, bookings)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]models.BookingView, error) {
	bookings, err := s.store.GetUserBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveViews(ctx, bookings)
}

func (s *BookingService) GetPropertyBookings(ctx context.Context, propertyID string) ([]models.BookingView, error) {
	bookings, err := s.store.GetPropertyBookings(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return s.resolveViews(ctx, bookings)
}

func (s *BookingService) GetBookingView(ctx context.Context, id string) (*models.BookingView, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.resolveViews(ctx, []*models.Booking{booking})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// resolveViews подставляет название объекта и данные пользователя.
// Удаленные объекты и неизвестные пользователи остаются только с id.
func (s *BookingService) resolveViews(ctx context.Context, bookings []*models.Booking) ([]models.BookingView, error) {
	views := make([]models.BookingView, 0, len(bookings))
	if len(bookings) == 0 {
		return views, nil
	}

	propertyIDs := make([]string, 0, len(bookings))
	userIDs := make([]string, 0, len(bookings))
	seen := make(map[string]struct{}, len(bookings)*2)
	for _, b := range bookings {
		if _, ok := seen["p:"+b.PropertyID]; !ok {
			seen["p:"+b.PropertyID] = struct{}{}
			propertyIDs = append(propertyIDs, b.PropertyID)
		}
		if _, ok := seen["u:"+b.UserID]; !ok {
			seen["u:"+b.UserID] = struct{}{}
			userIDs = append(userIDs, b.UserID)
		}
	}

	properties, err := s.store.GetPropertySummaries(ctx, propertyIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	for _, b := range bookings {
		view := models.BookingView{
			ID:        b.ID,
			Property:  models.PropertyRef{ID: b.PropertyID},
			User:      models.UserRef{ID: b.UserID},
			CheckIn:   b.CheckIn,
			CheckOut:  b.CheckOut,
			Message:   b.Message,
			Status:    b.Status,
			CreatedAt: b.CreatedAt,
		}
		if p, ok := properties[b.PropertyID]; ok {
			view.Property.Name = p.Name
			view.Property.Location = p.Location
		}
		if u, ok := users[b.UserID]; ok {
			view.User = u.Ref()
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	publishEvent(s.logger, s.eventBus, eventType, events.BookingEventPayload{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		UserID:     booking.UserID,
		Status:     booking.Status,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		ChangedBy:  changedBy,
	})
}
