package stock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockEventPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType())
	}
	return types
}

// MockRunLock is a mock implementation of RunLock
type MockRunLock struct {
	mock.Mock
}

func (m *MockRunLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockRunLock) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordReferenceCodeAllocated(ctx context.Context, prefix string) {
	m.Called(ctx, prefix)
}

func (m *MockMetricsRecorder) RecordTransferCreated(ctx context.Context) { m.Called(ctx) }

func (m *MockMetricsRecorder) RecordTransferCompleted(ctx context.Context) { m.Called(ctx) }

func (m *MockMetricsRecorder) RecordAdjustmentCreated(ctx context.Context) { m.Called(ctx) }

func (m *MockMetricsRecorder) RecordAdjustmentCompleted(ctx context.Context) { m.Called(ctx) }

func (m *MockMetricsRecorder) RecordReconcile(ctx context.Context, created, updated, resolved, failed int, elapsed time.Duration) {
	m.Called(ctx, created, updated, resolved, failed, elapsed)
}
