package service

import (
	"context"
	"sync"
	"testing"

	"rentals/internal/events"
	"rentals/internal/models"
	"rentals/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupReviews(t *testing.T) (*ReviewService, *CatalogService, *models.Property) {
	db := setupTestDB(t)
	catalog := NewCatalogService(db, nil, nil, fastRetry, testLogger())
	reviews := NewReviewService(db, nil, fastRetry, testLogger())

	p := newListing()
	require.NoError(t, catalog.CreateProperty(context.Background(), owner, p))
	return reviews, catalog, p
}

func TestReviewService_AddReview(t *testing.T) {
	ctx := context.Background()

	t.Run("Aggregate follows reviews", func(t *testing.T) {
		svc, _, p := setupReviews(t)

		updated, err := svc.AddReview(ctx, guest, p.ID, 5, "Great", "  lovely place ")
		require.NoError(t, err)
		assert.Equal(t, 1, updated.TotalReviews)
		assert.Equal(t, 5.0, updated.AverageRating)
		require.Len(t, updated.Reviews, 1)
		assert.Equal(t, "lovely place", updated.Reviews[0].Comment)
		assert.Equal(t, guest.Name, updated.Reviews[0].UserName)

		other := models.Identity{UserID: "u-other", Name: "Ira"}
		updated, err = svc.AddReview(ctx, other, p.ID, 2, "", "noisy street")
		require.NoError(t, err)
		assert.Equal(t, 2, updated.TotalReviews)
		assert.Equal(t, 3.5, updated.AverageRating)
	})

	t.Run("Duplicate review", func(t *testing.T) {
		svc, catalog, p := setupReviews(t)

		_, err := svc.AddReview(ctx, guest, p.ID, 4, "", "fine")
		require.NoError(t, err)

		_, err = svc.AddReview(ctx, guest, p.ID, 1, "", "changed my mind")
		assert.ErrorIs(t, err, models.ErrDuplicateReview)
		assert.ErrorIs(t, err, models.ErrConflict)

		stored, err := catalog.GetProperty(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.TotalReviews)
		assert.Equal(t, 4.0, stored.AverageRating)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, _, p := setupReviews(t)

		for _, rating := range []int{0, 6, -1} {
			_, err := svc.AddReview(ctx, guest, p.ID, rating, "", "text")
			assert.ErrorIs(t, err, models.ErrValidation)
		}

		_, err := svc.AddReview(ctx, guest, p.ID, 3, "", "   ")
		assert.ErrorIs(t, err, models.ErrValidation)

		_, err = svc.AddReview(ctx, guest, "missing", 3, "", "text")
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = svc.AddReview(ctx, models.Identity{}, p.ID, 3, "", "text")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("Publishes event", func(t *testing.T) {
		store := new(mockStore)
		bus := new(mockEventBus)
		svc := NewReviewService(store, bus, fastRetry, testLogger())

		p := newListing()
		p.ID = "p1"
		store.On("GetProperty", mock.Anything, "p1").Return(p, nil)
		store.On("ReplaceProperty", mock.Anything, p).Return(nil)
		bus.On("PublishJSON", events.EventReviewAdded, mock.MatchedBy(func(e events.ReviewEventPayload) bool {
			return e.PropertyID == "p1" && e.UserID == guest.UserID && e.Rating == 4 && e.TotalReviews == 1
		})).Return(assert.AnError)

		// ошибка публикации не ломает операцию
		_, err := svc.AddReview(ctx, guest, "p1", 4, "", "ok")
		require.NoError(t, err)
		bus.AssertExpectations(t)
	})
}

func TestReviewService_RateProperty(t *testing.T) {
	ctx := context.Background()
	svc, catalog, p := setupReviews(t)

	avg, err := svc.RateProperty(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg)

	// анонимные оценки не дедуплицируются
	avg, err = svc.RateProperty(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, avg)

	_, err = svc.RateProperty(ctx, p.ID, 9)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.RateProperty(ctx, "missing", 3)
	assert.ErrorIs(t, err, models.ErrNotFound)

	stored, err := catalog.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalReviews)
	for _, r := range stored.Reviews {
		assert.Empty(t, r.User)
		assert.Equal(t, models.AnonymousRatingComment, r.Comment)
	}
}

func TestReviewService_MarkHelpful(t *testing.T) {
	ctx := context.Background()
	svc, catalog, p := setupReviews(t)

	updated, err := svc.AddReview(ctx, guest, p.ID, 4, "", "clean")
	require.NoError(t, err)
	reviewID := updated.Reviews[0].ID

	count, err := svc.MarkHelpful(ctx, p.ID, reviewID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.MarkHelpfulByReview(ctx, reviewID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = svc.MarkHelpful(ctx, p.ID, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.MarkHelpfulByReview(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.MarkHelpful(ctx, "missing", reviewID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	stored, err := catalog.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Reviews[0].HelpfulCount)
	assert.Equal(t, 4.0, stored.AverageRating)
}

func TestReviewService_ConcurrentRatings(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	catalog := NewCatalogService(db, nil, nil, fastRetry, testLogger())
	retry := worker.RetryPolicy{MaxRetries: 50, InitialDelay: 1, MaxDelay: 2}
	svc := NewReviewService(db, nil, retry, testLogger())

	p := newListing()
	require.NoError(t, catalog.CreateProperty(ctx, owner, p))

	const numGoroutines = 10
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := svc.RateProperty(ctx, p.ID, rating)
			assert.NoError(t, err)
		}(i%5 + 1)
	}
	wg.Wait()

	stored, err := catalog.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, numGoroutines, stored.TotalReviews)
	assert.Len(t, stored.Reviews, numGoroutines)
	assert.InDelta(t, 3.0, stored.AverageRating, 1e-9)
}

func TestReviewService_VersionConflictExhausted(t *testing.T) {
	store := new(mockStore)
	retry := worker.RetryPolicy{MaxRetries: 2, InitialDelay: 1, MaxDelay: 1}
	svc := NewReviewService(store, nil, retry, testLogger())

	store.On("GetProperty", mock.Anything, "p1").Return(func() *models.Property {
		p := newListing()
		p.ID = "p1"
		return p
	}(), nil)
	store.On("ReplaceProperty", mock.Anything, mock.Anything).Return(models.ErrVersionConflict)

	_, err := svc.RateProperty(context.Background(), "p1", 3)
	assert.ErrorIs(t, err, models.ErrVersionConflict)
	store.AssertNumberOfCalls(t, "ReplaceProperty", 3)
}
