package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryRunLock serializes runs inside one process. Suitable for a single
// replica or tests.
type InMemoryRunLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewInMemoryRunLock creates an empty lock table
func NewInMemoryRunLock() *InMemoryRunLock {
	return &InMemoryRunLock{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// TryAcquire takes key unless it is held and not yet expired
func (l *InMemoryRunLock) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, held := l.expires[key]; held && now.Before(exp) {
		return false, nil
	}
	l.expires[key] = now.Add(ttl)
	return true, nil
}

// Release frees key
func (l *InMemoryRunLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.expires, key)
	l.mu.Unlock()
	return nil
}
