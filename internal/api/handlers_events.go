package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hs-platform/revintel/internal/eventbus"
)

// eventBroker fans bus events out to connected SSE clients. The server
// subscribes it to the bus once; each SSE connection gets its own channel.
type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[string]chan *eventbus.Event
}

func newEventBroker() *eventBroker {
	return &eventBroker{
		subscribers: make(map[string]chan *eventbus.Event),
	}
}

// broadcast delivers an event to every subscriber. Slow clients drop
// events rather than block the bus.
func (b *eventBroker) broadcast(event *eventbus.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *eventBroker) subscribe(id string) chan *eventbus.Event {
	ch := make(chan *eventbus.Event, 64)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return ch
}

func (b *eventBroker) unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// handleEventStream handles the SSE endpoint for real-time event updates
// GET /api/v1/events/stream
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, &APIError{Code: ErrCodeInternal, Message: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	customerID := r.URL.Query().Get("customer_id")
	eventType := r.URL.Query().Get("type")

	subscriberID := fmt.Sprintf("sse-%d", time.Now().UnixNano())
	ch := s.broker.subscribe(subscriberID)
	defer s.broker.unsubscribe(subscriberID)

	fmt.Fprintf(w, "event: connected\n")
	fmt.Fprintf(w, "data: {\"message\": \"Connected to event stream\"}\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if customerID != "" && event.CustomerID != customerID {
				continue
			}
			if eventType != "" && event.Type != eventType {
				continue
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleEventHistory handles GET /api/v1/events?limit=. The memory bus
// serves history from its ring buffer; the NATS bus replays the stream.
// A bus without history answers with an empty list.
func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}

	type historyProvider interface {
		History(limit int) []*eventbus.Event
	}

	provider, ok := s.bus.(historyProvider)
	if !ok {
		s.respondJSON(w, http.StatusOK, []*eventbus.Event{})
		return
	}

	limit := queryInt(r, "limit", 100)
	s.respondJSON(w, http.StatusOK, provider.History(limit))
}
