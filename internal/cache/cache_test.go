package cache

import (
	"context"
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Stop()
	ctx := context.Background()

	key, err := GenerateKey("icp", "cust-1", map[string]interface{}{"industry": "saas"})
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	response := map[string]interface{}{"score": 87.5, "tier": 1}
	if err := c.Set(ctx, key, "icp", "cust-1", response, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, found := c.Get(ctx, key)
	if !found {
		t.Fatal("Expected cache hit, got miss")
	}
	if entry.Kind != "icp" {
		t.Errorf("Expected kind 'icp', got %q", entry.Kind)
	}
	if entry.CustomerID != "cust-1" {
		t.Errorf("Expected customer 'cust-1', got %q", entry.CustomerID)
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Stop()
	ctx := context.Background()

	_, found := c.Get(ctx, "non-existent-key")
	if found {
		t.Error("Expected cache miss, got hit")
	}

	stats := c.GetStats(ctx)
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Stop()
	ctx := context.Background()

	key := "test-expire"
	if err := c.Set(ctx, key, "icp", "", "expires soon", 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, found := c.Get(ctx, key); !found {
		t.Fatal("Expected hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)
	if _, found := c.Get(ctx, key); found {
		t.Error("Expected miss after expiry")
	}
}

func TestGenerateKeyDeterministic(t *testing.T) {
	input := map[string]interface{}{"employee_count": 250, "industry": "fintech"}

	k1, err := GenerateKey("icp", "cust-1", input)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	k2, err := GenerateKey("icp", "cust-1", input)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if k1 != k2 {
		t.Error("Equal inputs should generate equal keys")
	}

	k3, _ := GenerateKey("icp", "cust-2", input)
	if k1 == k3 {
		t.Error("Different customers should generate different keys")
	}
	k4, _ := GenerateKey("calculator", "cust-1", input)
	if k1 == k4 {
		t.Error("Different kinds should generate different keys")
	}
}

func TestInvalidateByCustomer(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Stop()
	ctx := context.Background()

	_ = c.Set(ctx, "k1", "icp", "cust-1", "a", time.Hour)
	_ = c.Set(ctx, "k2", "icp", "cust-1", "b", time.Hour)
	_ = c.Set(ctx, "k3", "icp", "cust-2", "c", time.Hour)

	removed := c.InvalidateByCustomer(ctx, "cust-1")
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if _, found := c.Get(ctx, "k3"); !found {
		t.Error("cust-2 entry should survive")
	}
}

func TestInvalidateByKind(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Stop()
	ctx := context.Background()

	_ = c.Set(ctx, "icp:aaa", "icp", "", "a", time.Hour)
	_ = c.Set(ctx, "calculator:bbb", "calculator", "", "b", time.Hour)

	removed := c.InvalidateByKind(ctx, "icp")
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if _, found := c.Get(ctx, "calculator:bbb"); !found {
		t.Error("calculator entry should survive")
	}
}

func TestEvictionAtMaxSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 2
	cfg.CleanupPeriod = 0
	c := New(cfg)
	ctx := context.Background()

	_ = c.Set(ctx, "k1", "icp", "", "a", time.Hour)
	time.Sleep(5 * time.Millisecond)
	_ = c.Set(ctx, "k2", "icp", "", "b", time.Hour)
	time.Sleep(5 * time.Millisecond)
	_ = c.Set(ctx, "k3", "icp", "", "c", time.Hour)

	if _, found := c.Get(ctx, "k1"); found {
		t.Error("oldest entry should have been evicted")
	}
	if _, found := c.Get(ctx, "k3"); !found {
		t.Error("newest entry should be present")
	}

	stats := c.GetStats(ctx)
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestDisabledCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c := New(cfg)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "icp", "", "v", time.Hour); err != nil {
		t.Fatalf("Set on disabled cache should be a no-op: %v", err)
	}
	if _, found := c.Get(ctx, "k"); found {
		t.Error("Disabled cache should never hit")
	}
}
