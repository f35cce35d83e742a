// Package sse streams server events to browsers as text/event-stream.
//
//	b := sse.NewBroker()
//	bus.Listen(event.Wildcard, func(_ context.Context, e event.Event) { b.Publish(e.Name, e.Payload) })
//	r.Get("/sse/products", "products.events", b.ServeHTTP)
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

// Heartbeat is how often an idle stream gets a keep-alive comment.
var Heartbeat = 15 * time.Second

// Stream is one open event stream.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// New sets the event-stream headers on w and flushes them. Middleware
// wrappers are looked through via Unwrap. It returns nil when nothing in
// the chain can flush.
func New(w http.ResponseWriter) *Stream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		logger.Warn("sse: response cannot be flushed", "error", err)
		return nil
	}
	return &Stream{w: w, rc: rc}
}

// Send writes a named event with a JSON data line.
func (s *Stream) Send(name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	return s.write("event: %s\ndata: %s\n\n", name, payload)
}

// Comment writes a comment line, used as a heartbeat.
func (s *Stream) Comment(msg string) error {
	return s.write(": %s\n\n", msg)
}

func (s *Stream) write(format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(s.w, format, args...); err != nil {
		return err
	}
	return s.rc.Flush()
}

type message struct {
	name string
	data interface{}
}

// Broker fans published events out to every connected stream. A slow client
// loses events instead of blocking Publish.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan message]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan message]struct{})}
}

// Publish queues an event for every subscriber.
func (b *Broker) Publish(name string, data interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- message{name: name, data: data}:
		default:
			logger.Debug("sse: subscriber lagging, event dropped", "event", name)
		}
	}
}

// Subscribers returns the number of open streams.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// ServeHTTP holds the request open and streams events until the client
// goes away.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := New(w)
	if s == nil {
		return
	}

	ch := make(chan message, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}()

	ticker := time.NewTicker(Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case m := <-ch:
			if err := s.Send(m.name, m.data); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.Comment("ping"); err != nil {
				return
			}
		}
	}
}
