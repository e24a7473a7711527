// Package registry implements a multi-subscriber event registry.
//
// A Registry holds one logical event channel (the client keeps one for
// inbound messages and one for connection-state changes). Handlers are
// invoked in registration order against a stable snapshot, so subscribing or
// unsubscribing from inside a handler never corrupts a dispatch pass, and a
// handler that panics is isolated and logged without affecting the others.
package registry

import (
	"sync"

	"go.uber.org/zap"
)

type entry[T any] struct {
	id uint64
	fn func(T)
}

// Registry is a set of handlers for one event channel. The zero value is not
// usable; create instances with New. Safe for concurrent use.
type Registry[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []entry[T]
	logger   *zap.Logger
}

// New creates a registry that logs handler faults to the given logger.
func New[T any](logger *zap.Logger) *Registry[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry[T]{logger: logger}
}

// Subscribe registers a handler and returns a function that removes it.
// The returned function is idempotent.
func (r *Registry[T]) Subscribe(fn func(T)) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers = append(r.handlers, entry[T]{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.handlers {
			if e.id == id {
				r.handlers = append(r.handlers[:i:i], r.handlers[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers an event to a snapshot of the currently registered
// handlers in registration order. A handler registered or removed during the
// pass does not affect the pass itself. Panicking handlers are recovered and
// logged.
func (r *Registry[T]) Dispatch(event T) {
	r.mu.Lock()
	snapshot := make([]entry[T], len(r.handlers))
	copy(snapshot, r.handlers)
	r.mu.Unlock()

	for _, e := range snapshot {
		r.invoke(e, event)
	}
}

func (r *Registry[T]) invoke(e entry[T], event T) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event handler panicked",
				zap.Uint64("handler_id", e.id),
				zap.Any("panic", rec))
		}
	}()
	e.fn(event)
}

// Len returns the number of registered handlers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
