package service

import (
	"context"
	"time"

	"rentals/internal/domain"
	"rentals/internal/events"
	"rentals/internal/metrics"
	"rentals/internal/models"
	"rentals/internal/worker"

	"github.com/rs/zerolog"
)

var _ domain.CatalogService = (*CatalogService)(nil)

type CatalogService struct {
	repo     domain.PropertyRepository
	cache    domain.SearchCache
	eventBus domain.EventPublisher
	retry    worker.RetryPolicy
	logger   *zerolog.Logger
}

// NewCatalogService creates the catalog. cache may be nil, then every search
// goes to the repository.
func NewCatalogService(repo domain.PropertyRepository, cache domain.SearchCache, eventBus domain.EventPublisher, retry worker.RetryPolicy, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		retry:    retry,
		logger:   logger,
	}
}

func (s *CatalogService) CreateProperty(ctx context.Context, owner models.Identity, property *models.Property) error {
	if err := requireIdentity(owner); err != nil {
		return err
	}

	property.Owner = owner.UserID
	if property.Email == "" {
		property.Email = owner.Email
	}
	// Отзывы и рейтинг появляются только через ReviewService
	property.Reviews = nil
	property.AverageRating = 0
	property.TotalReviews = 0

	property.ApplyDefaults()
	if err := property.Validate(); err != nil {
		return err
	}

	if err := s.repo.CreateProperty(ctx, property); err != nil {
		return err
	}

	s.logger.Info().Str("property_id", property.ID).Str("owner", owner.UserID).Msg("Property created")
	s.publishChanged(property.ID, "created")
	return nil
}

func (s *CatalogService) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	return s.repo.GetProperty(ctx, id)
}

// UpdateProperty applies a partial update. Reviews and the rating aggregate are
// never changed here; a concurrent review write makes the update start over.
func (s *CatalogService) UpdateProperty(ctx context.Context, id string, patch models.PropertyPatch) (*models.Property, error) {
	var updated *models.Property
	err := s.retry.Do(ctx, isVersionConflict, func(ctx context.Context) error {
		property, err := s.repo.GetProperty(ctx, id)
		if err != nil {
			return err
		}

		patch.Apply(property)
		if err := property.Validate(); err != nil {
			return err
		}

		if err := s.repo.ReplaceProperty(ctx, property); err != nil {
			return err
		}
		updated = property
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishChanged(id, "updated")
	return updated, nil
}

func (s *CatalogService) DeleteProperty(ctx context.Context, id string) error {
	if err := s.repo.DeleteProperty(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("property_id", id).Msg("Property deleted")
	s.publishChanged(id, "deleted")
	return nil
}

func (s *CatalogService) SearchProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	filter = filter.Normalize()

	if s.cache != nil {
		if cached, ok := s.cache.GetSearch(ctx, filter); ok {
			metrics.IncSearchCache(true)
			return cached, nil
		}
		metrics.IncSearchCache(false)
	}

	properties, err := s.repo.SearchProperties(ctx, filter)
	if err != nil {
		return nil, err
	}
	if properties == nil {
		properties = []*models.Property{}
	}

	if s.cache != nil {
		if err := s.cache.SetSearch(ctx, filter, properties); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache search result")
		}
	}
	return properties, nil
}

func (s *CatalogService) CountProperties(ctx context.Context) (int64, error) {
	return s.repo.CountProperties(ctx)
}

func (s *CatalogService) GetPropertiesByEmail(ctx context.Context, email string) ([]*models.Property, error) {
	if email == "" {
		return nil, validationErr("email is required")
	}
	return s.repo.GetPropertiesByEmail(ctx, email)
}

func (s *CatalogService) CheckAvailability(ctx context.Context, id string, checkIn, checkOut time.Time) (bool, error) {
	property, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return false, err
	}
	return property.CheckAvailability(checkIn, checkOut), nil
}

func (s *CatalogService) CalculateTotalPrice(ctx context.Context, id string, days int) (float64, error) {
	if days < 0 {
		return 0, validationErr("days cannot be negative, got %d", days)
	}
	property, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return 0, err
	}
	return property.CalculateTotalPrice(days), nil
}

func (s *CatalogService) GetImage(ctx context.Context, id string, index int) (*models.Image, error) {
	property, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	return property.Image(index)
}

func (s *CatalogService) publishChanged(id, action string) {
	publishEvent(s.logger, s.eventBus, events.EventPropertyChanged, events.PropertyEventPayload{
		PropertyID: id,
		Action:     action,
	})
}
