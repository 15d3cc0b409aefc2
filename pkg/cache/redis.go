package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache.Store backed by a Redis instance
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed cache from an address ("host:port")
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Redis{client: client}
}

// Ping verifies the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set adds an item to the cache with the given TTL
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	r.client.Set(ctx, key, value, ttl)
}

// Get retrieves an item from the cache
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

// Delete removes an item from the cache
func (r *Redis) Delete(ctx context.Context, key string) {
	r.client.Del(ctx, key)
}
