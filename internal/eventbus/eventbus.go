// Package eventbus publishes platform events (agent executions,
// optimization recommendations, session lifecycle) for downstream
// consumers and the SSE stream.
package eventbus

import (
	"context"
	"time"
)

// Event is the envelope every published event uses.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	CustomerID string                 `json:"customer_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Publisher abstracts event publishing for testability.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, event *Event) error
}

// Subscriber abstracts event subscription for testability.
type Subscriber interface {
	SubscribeEvents(handler func(*Event)) error
}
