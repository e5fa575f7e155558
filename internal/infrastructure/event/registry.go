package event

import (
	"slices"
	"sync"

	"github.com/erp/backoffice/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers. Handlers registered without
// types receive every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string][]shared.EventHandler)}
}

// Register adds handler for eventTypes, or for all events when none are given
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, t := range eventTypes {
		r.handlers[t] = append(r.handlers[t], handler)
	}
}

// Unregister removes handler everywhere it was registered
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	isHandler := func(h shared.EventHandler) bool { return h == handler }
	r.wildcard = slices.DeleteFunc(r.wildcard, isHandler)
	for t, hs := range r.handlers {
		if hs = slices.DeleteFunc(hs, isHandler); len(hs) == 0 {
			delete(r.handlers, t)
		} else {
			r.handlers[t] = hs
		}
	}
}

// HandlersFor returns the typed handlers followed by the wildcard ones
func (r *HandlerRegistry) HandlersFor(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typed := r.handlers[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	out = append(out, typed...)
	return append(out, r.wildcard...)
}
