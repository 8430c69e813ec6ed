package health

import (
	"context"
	"errors"
	"testing"
)

func TestReadyBeforeFirstRound(t *testing.T) {
	w := NewWatchdog(0)
	if w.Ready() {
		t.Error("watchdog should not report ready before any checks ran")
	}
}

func TestRunChecksAllHealthy(t *testing.T) {
	w := NewWatchdog(0)
	w.AddCheck("database", func(ctx context.Context) error { return nil })
	w.AddCheck("cache", func(ctx context.Context) error { return nil })

	w.RunChecks(context.Background())

	if !w.Ready() {
		t.Error("watchdog should be ready when all checks pass")
	}
	snap := w.Snapshot()
	if !snap.Healthy || len(snap.Checks) != 2 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestRunChecksFailurePropagates(t *testing.T) {
	w := NewWatchdog(0)
	w.AddCheck("database", func(ctx context.Context) error { return nil })
	w.AddCheck("events", func(ctx context.Context) error { return errors.New("connection refused") })

	w.RunChecks(context.Background())

	if w.Ready() {
		t.Error("watchdog should not be ready with a failing check")
	}
	snap := w.Snapshot()
	if snap.Healthy {
		t.Error("snapshot should be unhealthy")
	}
	var found bool
	for _, s := range snap.Checks {
		if s.Name == "events" {
			found = true
			if s.Healthy || s.Error != "connection refused" {
				t.Errorf("unexpected status: %+v", s)
			}
		}
	}
	if !found {
		t.Error("events check missing from snapshot")
	}
}

func TestRecoveryClearsFailure(t *testing.T) {
	w := NewWatchdog(0)
	fail := true
	w.AddCheck("database", func(ctx context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})

	w.RunChecks(context.Background())
	if w.Ready() {
		t.Fatal("expected not ready while failing")
	}

	fail = false
	w.RunChecks(context.Background())
	if !w.Ready() {
		t.Error("expected ready after recovery")
	}
}
