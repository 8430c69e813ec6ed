// Package health runs periodic dependency checks and keeps a snapshot the
// readiness and health endpoints serve without touching the dependencies
// on every request.
package health

import (
	"context"
	"log"
	"sync"
	"time"
)

// Check probes one dependency. Name must be stable across runs.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Status is the recorded outcome of one check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	LatencyMs int64     `json:"latency_ms"`
}

// Snapshot is the full system health at a point in time.
type Snapshot struct {
	Healthy   bool      `json:"healthy"`
	Checks    []Status  `json:"checks"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Watchdog periodically runs the registered checks.
type Watchdog struct {
	interval time.Duration
	timeout  time.Duration

	mu       sync.RWMutex
	checks   []Check
	snapshot Snapshot
}

// NewWatchdog creates a watchdog. A zero interval defaults to 30s.
func NewWatchdog(interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watchdog{
		interval: interval,
		timeout:  5 * time.Second,
	}
}

// AddCheck registers a dependency check.
func (w *Watchdog) AddCheck(name string, probe func(ctx context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.checks = append(w.checks, Check{Name: name, Probe: probe})
}

// Start runs checks until the context is canceled. It runs one round
// immediately so the snapshot is populated before the first tick.
func (w *Watchdog) Start(ctx context.Context) {
	w.RunChecks(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunChecks(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunChecks executes every registered check once and updates the snapshot.
func (w *Watchdog) RunChecks(ctx context.Context) {
	w.mu.RLock()
	checks := make([]Check, len(w.checks))
	copy(checks, w.checks)
	w.mu.RUnlock()

	statuses := make([]Status, 0, len(checks))
	healthy := true
	for _, check := range checks {
		status := w.runOne(ctx, check)
		if !status.Healthy {
			healthy = false
			log.Printf("[Watchdog] Check %s failed: %s", status.Name, status.Error)
		}
		statuses = append(statuses, status)
	}

	w.mu.Lock()
	w.snapshot = Snapshot{
		Healthy:   healthy,
		Checks:    statuses,
		UpdatedAt: time.Now(),
	}
	w.mu.Unlock()
}

func (w *Watchdog) runOne(ctx context.Context, check Check) Status {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := check.Probe(probeCtx)
	status := Status{
		Name:      check.Name,
		Healthy:   err == nil,
		CheckedAt: start,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// Snapshot returns the most recent health snapshot.
func (w *Watchdog) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Ready reports whether every check in the last round passed. Before the
// first round completes it reports false.
func (w *Watchdog) Ready() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.snapshot.UpdatedAt.IsZero() && w.snapshot.Healthy
}
