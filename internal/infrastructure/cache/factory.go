package cache

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RunLock is satisfied by both lock implementations
type RunLock interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RunLockFactoryOption configures NewRunLock
type RunLockFactoryOption func(*runLockFactory)

type runLockFactory struct {
	logger        *zap.Logger
	allowFallback bool
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) RunLockFactoryOption {
	return func(f *runLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to a
// process-local lock instead of failing startup
func WithInMemoryFallback(allow bool) RunLockFactoryOption {
	return func(f *runLockFactory) {
		f.allowFallback = allow
	}
}

// NewRunLock returns a Redis lock when Redis is enabled and reachable and an
// in-memory lock otherwise. The close func releases the Redis client.
func NewRunLock(cfg config.RedisConfig, opts ...RunLockFactoryOption) (RunLock, func() error, error) {
	f := &runLockFactory{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(f)
	}
	noop := func() error { return nil }

	if !cfg.Enabled {
		f.logger.Info("Redis disabled, using in-memory run lock")
		return NewInMemoryRunLock(), noop, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		if !f.allowFallback {
			return nil, noop, err
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory run lock", zap.Error(err))
		return NewInMemoryRunLock(), noop, nil
	}

	f.logger.Info("Using Redis run lock", zap.String("addr", cfg.Addr()))
	lock := NewRedisRunLock(client, "")
	return lock, lock.Close, nil
}
