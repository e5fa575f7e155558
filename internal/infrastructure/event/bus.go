package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches events synchronously to subscribed handlers.
// A failing or panicking handler is logged and does not stop the others;
// events published after the transaction commits are never rolled back.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	dropped  atomic.Int64
}

// NewInMemoryEventBus creates a bus that accepts events once started
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
}

// Publish hands each event to its handlers in registration order. Events
// published while the bus is stopped are counted and dropped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		b.dropped.Add(int64(len(events)))
		return nil
	}
	for _, e := range events {
		for _, h := range b.registry.HandlersFor(e.EventType()) {
			if err := b.dispatch(ctx, h, e); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", e.EventType()),
					zap.String("event_id", e.EventID().String()),
					zap.String("aggregate_id", e.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler; with no types it uses handler.EventTypes()
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started")
	return nil
}

func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped", zap.Int64("dropped", b.dropped.Load()))
	return nil
}

// Dropped reports how many events arrived while the bus was stopped
func (b *InMemoryEventBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "event."+e.EventType(),
		telemetry.WithAttribute("event_id", e.EventID()),
		telemetry.WithAttribute("aggregate_type", e.AggregateType()),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		telemetry.RecordError(span, err)
	}()
	return h.Handle(ctx, e)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
