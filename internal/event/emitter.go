// Package event provides generic event emission utilities.
package event

import "sync"

// Emitter fans events out to registered handlers. The zero value is
// ready to use. Handlers are invoked synchronously, in registration
// order, on the emitting goroutine.
type Emitter[E any] struct {
	// +checklocks:mu
	handlers []func(E)
	mu       sync.RWMutex
}

// OnEvent registers a handler. Handlers cannot be removed; components
// with a bounded lifetime should check their own state inside the
// handler.
func (e *Emitter[E]) OnEvent(handler func(E)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Emit delivers event to every registered handler. The handler slice is
// copied first so registration during emission is safe. Must not be
// called while holding locks a handler might take.
func (e *Emitter[E]) Emit(event E) {
	e.mu.RLock()
	handlers := make([]func(E), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// HandlerCount returns the number of registered handlers.
func (e *Emitter[E]) HandlerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}
