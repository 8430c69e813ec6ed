// Package ratelimit provides per-key request limiting over fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
// When a request is denied, retryAfter tells the caller how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// window is one fixed counting window for a key.
type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter counts requests per key in fixed one-minute windows.
// State is per-instance; use the Redis limiter when running more than one.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per minute.
func NewMemoryLimiter(limit int) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  time.Minute,
		now:     time.Now,
	}
}

// Allow consumes one request from the key's current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.period)}
		l.maybeSweep(now)
		return true, 0, nil
	}

	if w.count >= l.limit {
		return false, w.resetAt.Sub(now), nil
	}
	w.count++
	return true, 0, nil
}

// maybeSweep drops expired windows so the map does not grow unbounded.
// Caller must hold l.mu.
func (l *MemoryLimiter) maybeSweep(now time.Time) {
	if len(l.windows) < 10000 {
		return
	}
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
