package stock

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Clock returns the current time. Services take it as an option so tests
// can pin the allocation month.
type Clock func() time.Time

// MetricsRecorder receives business counters from the stock services
type MetricsRecorder interface {
	RecordReferenceCodeAllocated(ctx context.Context, prefix string)
	RecordTransferCreated(ctx context.Context)
	RecordTransferCompleted(ctx context.Context)
	RecordAdjustmentCreated(ctx context.Context)
	RecordAdjustmentCompleted(ctx context.Context)
	RecordReconcile(ctx context.Context, created, updated, resolved, failed int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordReferenceCodeAllocated(context.Context, string)                 {}
func (noopMetrics) RecordTransferCreated(context.Context)                                {}
func (noopMetrics) RecordTransferCompleted(context.Context)                              {}
func (noopMetrics) RecordAdjustmentCreated(context.Context)                              {}
func (noopMetrics) RecordAdjustmentCompleted(context.Context)                            {}
func (noopMetrics) RecordReconcile(context.Context, int, int, int, int, time.Duration) {}

// serviceDeps holds the ambient collaborators every stock service shares
type serviceDeps struct {
	eventBus shared.EventPublisher
	metrics  MetricsRecorder
	logger   *zap.Logger
	clock    Clock
}

// Option configures a stock service
type Option func(*serviceDeps)

// WithEventPublisher publishes domain events after each committed operation
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(d *serviceDeps) { d.eventBus = p }
}

// WithMetrics records business counters
func WithMetrics(m MetricsRecorder) Option {
	return func(d *serviceDeps) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(d *serviceDeps) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(c Clock) Option {
	return func(d *serviceDeps) {
		if c != nil {
			d.clock = c
		}
	}
}

func newServiceDeps(opts []Option) serviceDeps {
	d := serviceDeps{
		metrics: noopMetrics{},
		logger:  zap.NewNop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d *serviceDeps) now() time.Time {
	return d.clock().UTC()
}

// publish sends the aggregate's pending events once its transaction has
// committed. Delivery failures are logged, never returned: the state change
// is already durable.
func (d *serviceDeps) publish(ctx context.Context, agg shared.AggregateRoot) {
	events := agg.GetDomainEvents()
	agg.ClearDomainEvents()
	d.publishEvents(ctx, events...)
}

func (d *serviceDeps) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if d.eventBus == nil || len(events) == 0 {
		return
	}
	if err := d.eventBus.Publish(ctx, events...); err != nil {
		d.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.String("first_event_type", events[0].EventType()),
			zap.Error(err),
		)
	}
}
