// Package cache provides a Redis backed response cache shared by all
// workers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/camrobjones/papernet/internal/papersources"
)

// DefaultKeyPrefix namespaces cache keys.
const DefaultKeyPrefix = "papernet:response:"

// RedisCache implements papersources.ResponseCache.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

var _ papersources.ResponseCache = (*RedisCache)(nil)

// NewRedisCache wraps client. An empty prefix uses DefaultKeyPrefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns the body cached under key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return body, true, nil
}

// Set stores body under key for ttl. A zero ttl keeps the entry until evicted.
func (c *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.redisKey(key), body, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// redisKey hashes the request key so long query strings stay within sane
// key sizes.
func (c *RedisCache) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return c.prefix + hex.EncodeToString(sum[:])
}
