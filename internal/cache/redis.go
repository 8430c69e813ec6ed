package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "revintel:cache:"

// RedisBackend stores cache entries in Redis so multiple instances share
// one cache. Entries expire via Redis TTLs; no cleanup loop is needed.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

// Ping checks the Redis connection.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) Get(ctx context.Context, key string) (*Entry, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("redis cache get failed: %v", err)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("redis cache entry corrupt, dropping: %v", err)
		r.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}

	entry.Hits++
	if updated, err := json.Marshal(&entry); err == nil {
		r.client.Set(ctx, redisKeyPrefix+key, updated, redis.KeepTTL)
	}

	return &entry, true
}

func (r *RedisBackend) Set(ctx context.Context, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+entry.Key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) {
	r.client.Del(ctx, redisKeyPrefix+key)
}

func (r *RedisBackend) Clear(ctx context.Context) {
	r.deleteByPattern(ctx, redisKeyPrefix+"*")
}

func (r *RedisBackend) InvalidateByKind(ctx context.Context, kind string) int {
	return r.deleteByPattern(ctx, redisKeyPrefix+kind+":*")
}

// InvalidateByCustomer scans all entries and removes those belonging to the
// customer. Customer ID is inside the value, so this is a full scan.
func (r *RedisBackend) InvalidateByCustomer(ctx context.Context, customerID string) int {
	removed := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if entry.CustomerID == customerID {
			if r.client.Del(ctx, key).Val() > 0 {
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("redis cache scan failed: %v", err)
	}
	return removed
}

func (r *RedisBackend) deleteByPattern(ctx context.Context, pattern string) int {
	removed := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if r.client.Del(ctx, iter.Val()).Val() > 0 {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("redis cache scan failed: %v", err)
	}
	return removed
}

// Compile-time interface check.
var _ Backend = (*RedisBackend)(nil)
