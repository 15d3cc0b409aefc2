package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a key-value cache with per-entry expiration. Values are strings;
// callers serialize structured data (JSON) before caching.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type item struct {
	value      string
	expiration int64
}

func (it item) expired() bool {
	if it.expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > it.expiration
}

// Memory is a thread-safe in-memory cache with expiration, used when no
// Redis instance is configured.
type Memory struct {
	items           map[string]item
	mu              sync.RWMutex
	cleanupInterval time.Duration
}

// NewMemory creates a new in-memory cache
func NewMemory(cleanupInterval time.Duration) *Memory {
	c := &Memory{
		items:           make(map[string]item),
		cleanupInterval: cleanupInterval,
	}

	if cleanupInterval > 0 {
		go c.startCleanupTimer()
	}

	return c
}

// Set adds an item to the cache with the given TTL
func (c *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiration: exp}
}

// Get retrieves an item from the cache
func (c *Memory) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || it.expired() {
		return "", false
	}
	return it.value, true
}

// Delete removes an item from the cache
func (c *Memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Memory) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		for k, it := range c.items {
			if it.expired() {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}
