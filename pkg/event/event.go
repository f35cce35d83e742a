// Package event is an in-process publish/subscribe bus. Product writes fire
// events here; the websocket hub and the list cache listen.
package event

import (
	"context"
	"sync"
)

// Wildcard listeners receive every event.
const Wildcard = "*"

// Event is one fired event.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"data"`
}

// Handler receives an event.
type Handler func(ctx context.Context, e Event)

// Bus holds listeners by event name.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers handler for name, or for every event with Wildcard.
func (b *Bus) Listen(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

func (b *Bus) listeners(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, 0, len(b.handlers[name])+len(b.handlers[Wildcard]))
	hs = append(hs, b.handlers[name]...)
	return append(hs, b.handlers[Wildcard]...)
}

// Fire dispatches synchronously to all listeners of name.
func (b *Bus) Fire(ctx context.Context, name string, payload interface{}) {
	e := Event{Name: name, Payload: payload}
	for _, h := range b.listeners(name) {
		h(ctx, e)
	}
}

// FireAsync dispatches to each listener in its own goroutine and returns
// immediately. The listeners get a context detached from ctx's cancellation.
func (b *Bus) FireAsync(ctx context.Context, name string, payload interface{}) {
	e := Event{Name: name, Payload: payload}
	detached := context.WithoutCancel(ctx)
	for _, h := range b.listeners(name) {
		go h(detached, e)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}

var defaultBus = New()

// Default returns the process-wide bus.
func Default() *Bus { return defaultBus }

func Listen(name string, handler Handler)                             { defaultBus.Listen(name, handler) }
func Fire(ctx context.Context, name string, payload interface{})      { defaultBus.Fire(ctx, name, payload) }
func FireAsync(ctx context.Context, name string, payload interface{}) { defaultBus.FireAsync(ctx, name, payload) }
func Flush()                                                          { defaultBus.Flush() }
