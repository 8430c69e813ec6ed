package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry represents a cached computation result.
type Entry struct {
	Key        string      `json:"key"`
	Response   interface{} `json:"response"`
	Kind       string      `json:"kind"` // "icp", "calculator", ...
	CustomerID string      `json:"customer_id,omitempty"`
	CachedAt   time.Time   `json:"cached_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Hits       int64       `json:"hits"`
}

// Config defines cache configuration.
type Config struct {
	Enabled       bool          `json:"enabled"`
	DefaultTTL    time.Duration `json:"default_ttl"`
	MaxSize       int           `json:"max_size"`
	CleanupPeriod time.Duration `json:"cleanup_period"`
}

// DefaultConfig returns sensible defaults for caching.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultTTL:    1 * time.Hour,
		MaxSize:       10000,
		CleanupPeriod: 5 * time.Minute,
	}
}

// Backend is the interface for cache storage backends.
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	InvalidateByCustomer(ctx context.Context, customerID string) int
	InvalidateByKind(ctx context.Context, kind string) int
}

// Cache provides TTL caching for analysis and calculator results.
type Cache struct {
	backend Backend
	config  *Config
	entries map[string]*Entry
	mu      sync.RWMutex
	stats   *Stats
	stop    chan struct{}
}

// Stats tracks cache performance.
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Evictions    int64   `json:"evictions"`
	TotalEntries int64   `json:"total_entries"`
	HitRate      float64 `json:"hit_rate"`
}

// New creates a new in-memory cache instance.
func New(config *Config) *Cache {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Cache{
		config:  config,
		entries: make(map[string]*Entry),
		stats:   &Stats{},
		stop:    make(chan struct{}),
	}

	if config.Enabled && config.CleanupPeriod > 0 {
		go c.cleanupLoop()
	}

	return c
}

// NewWithBackend creates a cache instance backed by external storage.
func NewWithBackend(backend Backend, config *Config) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	return &Cache{
		backend: backend,
		config:  config,
		stats:   &Stats{},
		stop:    make(chan struct{}),
	}
}

// GenerateKey creates a cache key from a kind and a request payload.
// The payload is serialized to JSON so equal inputs share an entry.
func GenerateKey(kind, customerID string, request interface{}) (string, error) {
	reqBytes, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	hasher := sha256.New()
	hasher.Write([]byte(kind))
	hasher.Write([]byte(":"))
	hasher.Write([]byte(customerID))
	hasher.Write([]byte(":"))
	hasher.Write(reqBytes)

	return kind + ":" + hex.EncodeToString(hasher.Sum(nil)), nil
}

// Get retrieves a cached response if available and not expired.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	if c.backend != nil {
		entry, found := c.backend.Get(ctx, key)
		c.updateStats(found)
		return entry, found
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.updateStats(false)
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.updateStats(false)
		return nil, false
	}

	c.mu.Lock()
	entry.Hits++
	c.mu.Unlock()

	c.updateStats(true)
	return entry, true
}

// Set stores a response in the cache.
func (c *Cache) Set(ctx context.Context, key, kind, customerID string, response interface{}, ttl time.Duration) error {
	if !c.config.Enabled {
		return nil
	}
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	entry := &Entry{
		Key:        key,
		Response:   response,
		Kind:       kind,
		CustomerID: customerID,
		CachedAt:   time.Now(),
		ExpiresAt:  time.Now().Add(ttl),
	}

	if c.backend != nil {
		return c.backend.Set(ctx, entry, ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.config.MaxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	return nil
}

// Delete removes an entry from the cache.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.config.Enabled {
		return
	}
	if c.backend != nil {
		c.backend.Delete(ctx, key)
		return
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries from the cache.
func (c *Cache) Clear(ctx context.Context) {
	if !c.config.Enabled {
		return
	}
	if c.backend != nil {
		c.backend.Clear(ctx)
		return
	}

	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// InvalidateByCustomer removes all cache entries for a customer.
func (c *Cache) InvalidateByCustomer(ctx context.Context, customerID string) int {
	if !c.config.Enabled {
		return 0
	}
	if c.backend != nil {
		return c.backend.InvalidateByCustomer(ctx, customerID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.CustomerID == customerID {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidateByKind removes all cache entries of a given kind.
func (c *Cache) InvalidateByKind(ctx context.Context, kind string) int {
	if !c.config.Enabled {
		return 0
	}
	if c.backend != nil {
		return c.backend.InvalidateByKind(ctx, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, kind+":") {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats(ctx context.Context) *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := *c.stats
	stats.TotalEntries = int64(len(c.entries))
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return &stats
}

// Stop terminates the background cleanup goroutine.
func (c *Cache) Stop() {
	close(c.stop)
}

func (c *Cache) updateStats(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// evictOldest removes the entry with the earliest CachedAt.
// Caller must hold c.mu.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.ExpiresAt) {
					delete(c.entries, key)
					c.stats.Evictions++
				}
			}
			c.mu.Unlock()
		}
	}
}
