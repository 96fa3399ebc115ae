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

var _ domain.ReviewService = (*ReviewService)(nil)

// ReviewService mutates the reviews embedded in a property. Every mutation
// reads the document, changes it in memory together with the aggregate and
// writes it back only if nobody else wrote in between.
type ReviewService struct {
	repo     domain.PropertyRepository
	eventBus domain.EventPublisher
	retry    worker.RetryPolicy
	logger   *zerolog.Logger
}

func NewReviewService(repo domain.PropertyRepository, eventBus domain.EventPublisher, retry worker.RetryPolicy, logger *zerolog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		eventBus: eventBus,
		retry:    retry,
		logger:   logger,
	}
}

type loadFunc func(ctx context.Context) (*models.Property, error)

// mutate runs load, apply, replace until the replace wins the version check.
func (s *ReviewService) mutate(ctx context.Context, load loadFunc, apply func(*models.Property) error) (*models.Property, error) {
	var updated *models.Property
	attempts := 0
	err := s.retry.Do(ctx, isVersionConflict, func(ctx context.Context) error {
		attempts++
		property, err := load(ctx)
		if err != nil {
			return err
		}
		if err := apply(property); err != nil {
			return err
		}
		if err := s.repo.ReplaceProperty(ctx, property); err != nil {
			return err
		}
		updated = property
		return nil
	})
	if err != nil {
		if isVersionConflict(err) {
			s.logger.Warn().Int("attempts", attempts).Msg("Review write lost the version race, giving up")
		}
		return nil, err
	}
	return updated, nil
}

func (s *ReviewService) byID(propertyID string) loadFunc {
	return func(ctx context.Context) (*models.Property, error) {
		return s.repo.GetProperty(ctx, propertyID)
	}
}

func (s *ReviewService) AddReview(ctx context.Context, user models.Identity, propertyID string, rating int, title, comment string) (*models.Property, error) {
	if err := requireIdentity(user); err != nil {
		return nil, err
	}
	if err := models.ValidateRating(rating); err != nil {
		return nil, err
	}

	review := models.NewReview(user.UserID, user.Name, rating, title, comment, time.Now().UTC())
	if review.Comment == "" {
		return nil, validationErr("review comment is required")
	}

	property, err := s.mutate(ctx, s.byID(propertyID), func(p *models.Property) error {
		return p.AddReview(review)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReview("review")
	s.publishEvent(events.EventReviewAdded, property, events.ReviewEventPayload{
		ReviewID: review.ID,
		UserID:   user.UserID,
		Rating:   rating,
	})
	return property, nil
}

// RateProperty adds an anonymous rating and returns the new average.
func (s *ReviewService) RateProperty(ctx context.Context, propertyID string, rating int) (float64, error) {
	if err := models.ValidateRating(rating); err != nil {
		return 0, err
	}

	var review models.Review
	property, err := s.mutate(ctx, s.byID(propertyID), func(p *models.Property) error {
		r, err := p.Rate(rating, time.Now().UTC())
		review = r
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.IncReview("rate")
	s.publishEvent(events.EventPropertyRated, property, events.ReviewEventPayload{
		ReviewID: review.ID,
		Rating:   rating,
	})
	return property.AverageRating, nil
}

func (s *ReviewService) MarkHelpful(ctx context.Context, propertyID, reviewID string) (int, error) {
	return s.markHelpful(ctx, s.byID(propertyID), reviewID)
}

// MarkHelpfulByReview finds the property through the review id alone.
func (s *ReviewService) MarkHelpfulByReview(ctx context.Context, reviewID string) (int, error) {
	return s.markHelpful(ctx, func(ctx context.Context) (*models.Property, error) {
		return s.repo.GetPropertyByReviewID(ctx, reviewID)
	}, reviewID)
}

func (s *ReviewService) markHelpful(ctx context.Context, load loadFunc, reviewID string) (int, error) {
	var count int
	property, err := s.mutate(ctx, load, func(p *models.Property) error {
		c, err := p.MarkHelpful(reviewID)
		count = c
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.IncReview("helpful")
	s.publishEvent(events.EventReviewHelpful, property, events.ReviewEventPayload{
		ReviewID:     reviewID,
		HelpfulCount: count,
	})
	return count, nil
}

func (s *ReviewService) publishEvent(eventType string, property *models.Property, payload events.ReviewEventPayload) {
	payload.PropertyID = property.ID
	payload.AverageRating = property.AverageRating
	payload.TotalReviews = property.TotalReviews
	publishEvent(s.logger, s.eventBus, eventType, payload)
}
