// Package cache is an optional Redis-backed read cache in front of the
// aggregator's stats and uptime computations. The aggregators are correct
// without it; this exists purely to keep dashboard polling cheap.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL bounds how stale a cached stats/uptime value may be.
const TTL = 15 * time.Second

// Cache wraps a Redis client with JSON get/set helpers scoped to short TTLs.
type Cache struct {
	client *redis.Client
}

// New connects to addr/db with an optional password. Returns nil, nil if
// addr is empty, so callers can treat a nil *Cache as "cache disabled."
func New(addr, password string, db int) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get unmarshals the cached value for key into dest, reporting whether it was
// present.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v at key with the package TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, TTL).Err()
}

// Close releases the underlying client. Safe to call on a nil Cache.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
