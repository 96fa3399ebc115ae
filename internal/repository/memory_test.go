package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	t.Run("MutualExclusion", func(t *testing.T) {
		const workers = 20
		var (
			wg      sync.WaitGroup
			inside  atomic.Int32
			maxSeen atomic.Int32
		)
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, "property:p1")
				if !assert.NoError(t, err) {
					return
				}
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				_ = unlock(ctx)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxSeen.Load())
		locker.mu.Lock()
		assert.Empty(t, locker.locks)
		locker.mu.Unlock()
	})

	t.Run("DifferentKeysDoNotBlock", func(t *testing.T) {
		unlockA, err := locker.Lock(ctx, "a")
		require.NoError(t, err)
		unlockB, err := locker.Lock(ctx, "b")
		require.NoError(t, err)
		require.NoError(t, unlockA(ctx))
		require.NoError(t, unlockB(ctx))
	})

	t.Run("ContextCanceled", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "busy")
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "busy")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// double unlock is harmless
		require.NoError(t, unlock(ctx))
		require.NoError(t, unlock(ctx))

		unlock, err = locker.Lock(ctx, "busy")
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})
}

func TestMemorySearchCache(t *testing.T) {
	cache := NewMemorySearchCache(50 * time.Millisecond)
	ctx := context.Background()
	filter := models.PropertyFilter{Type: "Villa"}

	_, ok := cache.GetSearch(ctx, filter)
	assert.False(t, ok)

	require.NoError(t, cache.SetSearch(ctx, filter, []*models.Property{{ID: "p1"}}))
	got, ok := cache.GetSearch(ctx, models.PropertyFilter{Type: "villa"})
	require.True(t, ok)
	assert.Len(t, got, 1)

	require.NoError(t, cache.Invalidate(ctx))
	_, ok = cache.GetSearch(ctx, filter)
	assert.False(t, ok)

	require.NoError(t, cache.SetSearch(ctx, filter, []*models.Property{}))
	time.Sleep(60 * time.Millisecond)
	_, ok = cache.GetSearch(ctx, filter)
	assert.False(t, ok)
}
