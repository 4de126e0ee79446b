package rediscache

// Package rediscache provides a Redis-backed cache for public content pages.
// Identity is never stored here; sessions live only in client cookies.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/lumastream/lumastream/internal/errors"
)

// Cache is a Redis-backed ContentCache with a fixed TTL per entry.
type Cache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New creates a content cache with the default "content:" key prefix.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	return NewWithPrefix(client, "content:", ttl)
}

// NewWithPrefix creates a content cache with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Get retrieves a cached payload. Missing keys return a not_found error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, apperrors.NotFound("cache key is empty")
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cache miss")
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores a payload under the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	return c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

// Delete removes a cached payload. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}
