// Package events implements the lifecycle event bus of the CRUD engine.
//
// Publish runs every matching handler sequentially in registration order and never stops at the
// first failure: every handler error, and every recovered panic, is collected into one
// *errors.EventsFailedError. Handlers receive the publisher's context, so handlers of pre-mutation
// events run inside the mutation's transaction.
//
// Register and unregister handlers at wiring time. The registry is guarded, but changing it while
// requests publish makes the set of handlers a request sees depend on timing.
package events

import (
	"context"
	"fmt"
	"sync"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
)

// Handler reacts to the events it supports. Handlers must be comparable to be unregistered.
type Handler interface {
	Name() string
	Supports() []string
	Handle(ctx context.Context, event Event) error
}

type funcHandler struct {
	name     string
	supports []string
	fn       func(ctx context.Context, event Event) error
}

// HandlerFunc adapts fn into a Handler for the given event names
func HandlerFunc(name string, supports []string, fn func(ctx context.Context, event Event) error) Handler {
	return &funcHandler{name: name, supports: supports, fn: fn}
}

func (h *funcHandler) Name() string       { return h.name }
func (h *funcHandler) Supports() []string { return h.supports }
func (h *funcHandler) Handle(ctx context.Context, event Event) error {
	return h.fn(ctx, event)
}

// Bus dispatches events to registered handlers
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates a bus with no handlers
func NewBus() *Bus {
	return &Bus{}
}

// RegisterHandler appends h. Handlers run in registration order.
func (b *Bus) RegisterHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// UnregisterHandler removes h and reports whether it was registered
func (b *Bus) UnregisterHandler(h Handler) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, registered := range b.handlers {
		if registered == h {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// UnregisterAll removes every handler supporting any of names, or every handler when no name is given
func (b *Bus) UnregisterAll(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(names) == 0 {
		b.handlers = nil
		return
	}
	kept := b.handlers[:0:0]
	for _, h := range b.handlers {
		if !supportsAny(h, names) {
			kept = append(kept, h)
		}
	}
	b.handlers = kept
}

// Handlers returns the handlers that would receive an event named name
func (b *Bus) Handlers(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var matching []Handler
	for _, h := range b.handlers {
		if supportsAny(h, []string{name}) {
			matching = append(matching, h)
		}
	}
	return matching
}

func supportsAny(h Handler, names []string) bool {
	for _, supported := range h.Supports() {
		for _, name := range names {
			if supported == name {
				return true
			}
		}
	}
	return false
}

// Publish delivers event to every handler supporting its name
func (b *Bus) Publish(ctx context.Context, event Event) error {
	var failures []crudErrors.HandlerFailure
	for _, h := range b.Handlers(event.Name()) {
		if err := invoke(ctx, h, event); err != nil {
			log.WarnWithContext(ctx, "[events] handler %s failed on %s: %v", h.Name(), event.Name(), err)
			failures = append(failures, crudErrors.HandlerFailure{Handler: h.Name(), Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &crudErrors.EventsFailedError{Event: event.Name(), Failures: failures}
}

func invoke(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
