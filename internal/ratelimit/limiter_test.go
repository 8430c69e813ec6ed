package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterAllowsUnderLimit(t *testing.T) {
	l := NewMemoryLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(ctx, "key-1")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestMemoryLimiterDeniesOverLimit(t *testing.T) {
	l := NewMemoryLimiter(2)
	ctx := context.Background()

	_, _, _ = l.Allow(ctx, "key-1")
	_, _, _ = l.Allow(ctx, "key-1")

	allowed, retryAfter, err := l.Allow(ctx, "key-1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Fatal("third request should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter %v out of expected range", retryAfter)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1)
	ctx := context.Background()

	_, _, _ = l.Allow(ctx, "key-1")

	allowed, _, _ := l.Allow(ctx, "key-2")
	if !allowed {
		t.Error("key-2 should have its own window")
	}
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	l := NewMemoryLimiter(1)
	base := time.Now()
	current := base
	l.now = func() time.Time { return current }
	ctx := context.Background()

	allowed, _, _ := l.Allow(ctx, "key-1")
	if !allowed {
		t.Fatal("first request should pass")
	}
	allowed, _, _ = l.Allow(ctx, "key-1")
	if allowed {
		t.Fatal("second request in window should be denied")
	}

	current = base.Add(61 * time.Second)
	allowed, _, _ = l.Allow(ctx, "key-1")
	if !allowed {
		t.Error("request after window reset should pass")
	}
}
