// Package cache is the key-value store abstraction for VideoMetadata
//. An in-memory implementation is provided for tests and
// single-process deployments; a Redis-backed one would satisfy the same
// Store interface without any caller change.
package cache

import (
	"sync"
	"time"
)

// Store is a generic TTL key-value cache — the shape the Enrichment
// Client, rate limiter, and circuit breaker would all share if deployed
// behind a real store rather than worker memory.
type Store interface {
	Get(key string) (value []byte, found bool)
	Set(key string, value []byte, ttl time.Duration)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// InMemory is a process-local Store, sufficient for a single worker or
// for tests; it is not a substitute for the shared store a multi-worker
// deployment requires.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]entry)}
}

func (c *InMemory) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *InMemory) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// MetadataKey builds the cache key for one video's metadata.
func MetadataKey(videoID string) string {
	return "video:metadata:" + videoID
}
