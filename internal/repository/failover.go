package repository

import (
	"context"
	"sync/atomic"
	"time"

	"rentals/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverLocker uses the primary locker until it fails, then the fallback,
// and retries the primary once a minute.
type FailoverLocker struct {
	primary   domain.Locker
	fallback  domain.Locker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverLocker(primary, fallback domain.Locker, logger *zerolog.Logger) *FailoverLocker {
	return &FailoverLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (l *FailoverLocker) markDown() {
	l.isDown.Store(true)
	l.lastCheck.Store(time.Now().UnixNano())
}

func (l *FailoverLocker) Lock(ctx context.Context, key string) (domain.Unlock, error) {
	if !l.isDown.Load() {
		unlock, err := l.primary.Lock(ctx, key)
		if err == nil {
			return unlock, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		l.logger.Error().Err(err).Msg("Primary locker failed, falling back to memory")
		l.markDown()
		return l.fallback.Lock(ctx, key)
	}

	// Try to recover after 1 minute
	if time.Since(time.Unix(0, l.lastCheck.Load())) > recoveryInterval {
		unlock, err := l.primary.Lock(ctx, key)
		if err == nil {
			l.isDown.Store(false)
			l.logger.Info().Msg("Primary locker recovered")
			return unlock, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		l.lastCheck.Store(time.Now().UnixNano())
	}

	return l.fallback.Lock(ctx, key)
}
