package repository

import (
	"context"
	"sync"
	"time"

	"rentals/internal/domain"
	"rentals/internal/models"
)

// MemoryLocker serializes callers within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLock
}

type memoryLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memoryLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (domain.Unlock, error) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &memoryLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-lock.ch
			l.release(key, lock)
		})
		return nil
	}, nil
}

func (l *MemoryLocker) release(key string, lock *memoryLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

// MemorySearchCache keeps search results in process with a TTL.
type MemorySearchCache struct {
	entries sync.Map
	ttl     time.Duration
}

type searchEntry struct {
	properties []*models.Property
	expiresAt  time.Time
}

func NewMemorySearchCache(ttl time.Duration) *MemorySearchCache {
	return &MemorySearchCache{ttl: ttl}
}

func (c *MemorySearchCache) GetSearch(_ context.Context, filter models.PropertyFilter) ([]*models.Property, bool) {
	key := SearchCacheKey(filter)
	val, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := val.(*searchEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry.properties, true
}

func (c *MemorySearchCache) SetSearch(_ context.Context, filter models.PropertyFilter, properties []*models.Property) error {
	c.entries.Store(SearchCacheKey(filter), &searchEntry{
		properties: properties,
		expiresAt:  time.Now().Add(c.ttl),
	})
	return nil
}

func (c *MemorySearchCache) Invalidate(context.Context) error {
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})
	return nil
}
