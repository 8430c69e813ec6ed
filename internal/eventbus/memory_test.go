package eventbus

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryBusDeliversToSubscribers(t *testing.T) {
	bus := NewMemoryBus()

	var received []*Event
	if err := bus.SubscribeEvents(func(e *Event) {
		received = append(received, e)
	}); err != nil {
		t.Fatalf("SubscribeEvents failed: %v", err)
	}

	event := &Event{ID: "evt-1", CustomerID: "cust-1"}
	if err := bus.PublishEvent(context.Background(), "agent.execution.completed", event); err != nil {
		t.Fatalf("PublishEvent failed: %v", err)
	}

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != "agent.execution.completed" {
		t.Errorf("expected type to be filled from eventType, got %q", received[0].Type)
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be filled")
	}
}

func TestMemoryBusHistory(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = bus.PublishEvent(ctx, "test", &Event{ID: fmt.Sprintf("evt-%d", i)})
	}

	history := bus.History(3)
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
	if history[2].ID != "evt-4" {
		t.Errorf("expected newest event last, got %q", history[2].ID)
	}
}

func TestMemoryBusHistoryBounded(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	for i := 0; i < historySize+50; i++ {
		_ = bus.PublishEvent(ctx, "test", &Event{ID: fmt.Sprintf("evt-%d", i)})
	}

	history := bus.History(0)
	if len(history) != historySize {
		t.Errorf("expected history capped at %d, got %d", historySize, len(history))
	}
}
