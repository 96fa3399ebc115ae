package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentals/internal/config"
	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	lockKeyPrefix   = "lock:"
	searchKeyPrefix = "property:search:"
	scanCount       = 100
)

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX PX mutex shared by every process using the same Redis.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
	}
}

// Lock blocks until the key is acquired or ctx is done. The lock expires after
// the configured TTL even if it is never released.
func (l *RedisLocker) Lock(ctx context.Context, key string) (domain.Unlock, error) {
	if l.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	lockKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
					return fmt.Errorf("failed to release lock %s: %w", key, err)
				}
				return nil
			}, nil
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// RedisSearchCache stores search results under a hash of the normalized filter.
// Every error is logged and reported as a miss.
type RedisSearchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewRedisSearchCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisSearchCache {
	return &RedisSearchCache{client: client, ttl: ttl, logger: logger}
}

// SearchCacheKey returns the cache key of a filter. Filters differing only in
// case or surrounding blanks share a key.
func SearchCacheKey(filter models.PropertyFilter) string {
	filter = filter.Normalize()
	raw := "location=" + strings.ToLower(filter.Location) + "&type=" + strings.ToLower(filter.Type)
	sum := sha256.Sum256([]byte(raw))
	return searchKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisSearchCache) GetSearch(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, bool) {
	key := SearchCacheKey(filter)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Search cache GET failed")
		return nil, false
	}

	var properties []*models.Property
	if err := json.Unmarshal(val, &properties); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Search cache entry is corrupt")
		return nil, false
	}
	return properties, true
}

func (c *RedisSearchCache) SetSearch(ctx context.Context, filter models.PropertyFilter, properties []*models.Property) error {
	data, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to marshal search result: %w", err)
	}
	if err := c.client.Set(ctx, SearchCacheKey(filter), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache search result: %w", err)
	}
	return nil
}

// Invalidate drops every cached search result.
func (c *RedisSearchCache) Invalidate(ctx context.Context) error {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, searchKeyPrefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan search cache: %w", err)
		}
		keys = append(keys, batch...)
		if cursor = next; cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %d search cache keys: %w", len(keys), err)
	}

	c.logger.Debug().Int("keys", len(keys)).Msg("Search cache invalidated")
	return nil
}
