package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"rentals/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestRedisLocker(t *testing.T) {
	s, client := newMiniredis(t)
	locker := NewRedisLocker(client, time.Second)
	ctx := context.Background()

	t.Run("LockAndUnlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "property:p1")
		require.NoError(t, err)
		assert.True(t, s.Exists("lock:property:p1"))

		require.NoError(t, unlock(ctx))
		assert.False(t, s.Exists("lock:property:p1"))
	})

	t.Run("SecondLockWaits", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "property:p2")
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "property:p2")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		require.NoError(t, unlock(ctx))

		unlock2, err := locker.Lock(ctx, "property:p2")
		require.NoError(t, err)
		require.NoError(t, unlock2(ctx))
	})

	t.Run("StaleUnlockKeepsForeignLock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "property:p3")
		require.NoError(t, err)

		// lock expired and was taken by someone else
		s.FastForward(2 * time.Second)
		other, err := locker.Lock(ctx, "property:p3")
		require.NoError(t, err)

		require.NoError(t, unlock(ctx))
		assert.True(t, s.Exists("lock:property:p3"))
		require.NoError(t, other(ctx))
	})

	t.Run("NilClient", func(t *testing.T) {
		_, err := NewRedisLocker(nil, time.Second).Lock(ctx, "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("ServerDown", func(t *testing.T) {
		_, downClient := newMiniredis(t)
		down := NewRedisLocker(downClient, time.Second)
		downClient.Close()
		_, err := down.Lock(ctx, "x")
		assert.Error(t, err)
	})
}

func TestSearchCacheKey(t *testing.T) {
	a := SearchCacheKey(models.PropertyFilter{Location: " Lisbon ", Type: "Apartment"})
	b := SearchCacheKey(models.PropertyFilter{Location: "lisbon", Type: "apartment"})
	c := SearchCacheKey(models.PropertyFilter{Location: "porto"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, searchKeyPrefix)
}

func TestRedisSearchCache(t *testing.T) {
	s, client := newMiniredis(t)
	logger := zerolog.New(io.Discard)
	cache := NewRedisSearchCache(client, time.Minute, &logger)
	ctx := context.Background()

	filter := models.PropertyFilter{Location: "lisbon"}
	result := []*models.Property{{ID: "p1", Name: "Loft", Location: "Lisbon"}}

	t.Run("Miss", func(t *testing.T) {
		_, ok := cache.GetSearch(ctx, filter)
		assert.False(t, ok)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, cache.SetSearch(ctx, filter, result))

		got, ok := cache.GetSearch(ctx, models.PropertyFilter{Location: "LISBON"})
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "Loft", got[0].Name)
		assert.Equal(t, time.Minute, s.TTL(SearchCacheKey(filter)))
	})

	t.Run("EmptyResultIsCached", func(t *testing.T) {
		empty := models.PropertyFilter{Location: "madrid"}
		require.NoError(t, cache.SetSearch(ctx, empty, []*models.Property{}))
		got, ok := cache.GetSearch(ctx, empty)
		assert.True(t, ok)
		assert.Empty(t, got)
	})

	t.Run("CorruptEntry", func(t *testing.T) {
		corrupt := models.PropertyFilter{Type: "villa"}
		require.NoError(t, s.Set(SearchCacheKey(corrupt), "not json"))
		_, ok := cache.GetSearch(ctx, corrupt)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, s.Set("unrelated", "keep"))
		require.NoError(t, cache.Invalidate(ctx))

		_, ok := cache.GetSearch(ctx, filter)
		assert.False(t, ok)
		assert.True(t, s.Exists("unrelated"))
		assert.NoError(t, cache.Invalidate(ctx))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestCloseNilClient(t *testing.T) {
	assert.NoError(t, Close(nil))
}
