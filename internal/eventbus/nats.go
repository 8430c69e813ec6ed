package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsBus publishes events to NATS with JetStream persistence.
type NatsBus struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
	url        string
}

// Config holds NATS configuration.
type Config struct {
	URL        string        // NATS server URL (e.g., "nats://nats:4222")
	StreamName string        // JetStream stream name (default: "REVINTEL")
	Timeout    time.Duration // Connection timeout
}

// NewNatsBus connects to NATS and ensures the event stream exists.
func NewNatsBus(cfg Config) (*NatsBus, error) {
	if cfg.URL == "" {
		cfg.URL = "nats://localhost:4222"
	}
	if cfg.StreamName == "" {
		cfg.StreamName = "REVINTEL"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bus := &NatsBus{
		conn:       nc,
		js:         js,
		streamName: cfg.StreamName,
		url:        cfg.URL,
	}

	if err := bus.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	log.Printf("Connected to NATS at %s with JetStream stream %s", cfg.URL, cfg.StreamName)
	return bus, nil
}

// ensureStream creates or updates the JetStream stream. LimitsPolicy allows
// multiple consumers on the same subjects for event fan-out.
func (b *NatsBus) ensureStream() error {
	streamConfig := &nats.StreamConfig{
		Name:      b.streamName,
		Subjects:  []string{"revintel.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		MaxBytes:  256 * 1024 * 1024,
		Storage:   nats.FileStorage,
		Replicas:  1,
		Discard:   nats.DiscardOld,
	}

	if _, err := b.js.StreamInfo(b.streamName); err != nil {
		if _, err := b.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		log.Printf("Created JetStream stream: %s", b.streamName)
		return nil
	}

	if _, err := b.js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	return nil
}

// PublishEvent publishes an event to revintel.events.{type}.
func (b *NatsBus) PublishEvent(ctx context.Context, eventType string, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Type == "" {
		event.Type = eventType
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("revintel.events.%s", eventType)
	if _, err := b.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeEvents delivers every platform event to the handler.
func (b *NatsBus) SubscribeEvents(handler func(*Event)) error {
	_, err := b.js.Subscribe("revintel.events.>", func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("failed to unmarshal event: %v", err)
			return
		}
		handler(&event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	return nil
}

// History replays the retained stream and returns up to limit most recent
// events, newest last. An ephemeral ordered consumer drains the stream and
// stops when no message arrives within the poll window.
func (b *NatsBus) History(limit int) []*Event {
	if limit <= 0 {
		limit = 100
	}

	sub, err := b.js.SubscribeSync("revintel.events.>",
		nats.OrderedConsumer(),
		nats.DeliverAll(),
	)
	if err != nil {
		log.Printf("failed to replay event history: %v", err)
		return []*Event{}
	}
	defer sub.Unsubscribe()

	events := make([]*Event, 0, limit)
	for {
		msg, err := sub.NextMsg(500 * time.Millisecond)
		if err != nil {
			break
		}
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			continue
		}
		events = append(events, &event)
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}

// Healthy reports whether the NATS connection is up.
func (b *NatsBus) Healthy() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (b *NatsBus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// Compile-time interface checks.
var (
	_ Publisher  = (*NatsBus)(nil)
	_ Subscriber = (*NatsBus)(nil)
)
