package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockKeyPrefix = "backoffice:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock is a SETNX lock shared by every process using the same Redis
type RedisRunLock struct {
	client    *redis.Client
	keyPrefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisClient connects to Redis and verifies it answers within five seconds
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisRunLock wraps client; an empty keyPrefix uses the default
func NewRedisRunLock(client *redis.Client, keyPrefix string) *RedisRunLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	return &RedisRunLock{
		client:    client,
		keyPrefix: keyPrefix,
		tokens:    make(map[string]string),
	}
}

// TryAcquire sets the key with ttl unless another holder has it
func (l *RedisRunLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release drops the lock if this instance still holds it
func (l *RedisRunLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (l *RedisRunLock) Close() error {
	return l.client.Close()
}
