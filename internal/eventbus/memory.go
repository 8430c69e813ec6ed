package eventbus

import (
	"context"
	"sync"
	"time"
)

const historySize = 1000

// MemoryBus is an in-process event bus used when NATS is not configured
// and in tests. It keeps a bounded history for the events endpoint.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []func(*Event)
	history  []*Event
}

// NewMemoryBus creates an in-process event bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// PublishEvent delivers the event to all subscribers synchronously.
func (b *MemoryBus) PublishEvent(_ context.Context, eventType string, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		event.Type = eventType
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}
	handlers := make([]func(*Event), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// SubscribeEvents registers a handler for all future events.
func (b *MemoryBus) SubscribeEvents(handler func(*Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// History returns up to limit most recent events, newest last.
func (b *MemoryBus) History(limit int) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]*Event, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}

// Compile-time interface checks.
var (
	_ Publisher  = (*MemoryBus)(nil)
	_ Subscriber = (*MemoryBus)(nil)
)
