package store

import (
	"sync"
	"time"
)

// Cache provides an abstraction for caching the active requirements
// list, so the evaluate-all path does not hit the database on every
// request. Implementations can be in-memory, Redis, or anything else.
type Cache interface {
	// Get retrieves cached requirements, nil on miss or expiry
	Get() []*StoredRequirement

	// Set stores requirements in cache
	Set(reqs []*StoredRequirement)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()
}

// CacheConfig holds configuration for cache behavior.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults: no TTL, invalidate on
// mutation only.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}

// InMemoryCache is a simple in-memory implementation of Cache.
// Thread-safe for concurrent access.
type InMemoryCache struct {
	reqs     []*StoredRequirement
	cachedAt time.Time
	config   CacheConfig
	valid    bool
	mu       sync.RWMutex
}

// NewInMemoryCache creates a new in-memory requirements cache.
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{config: config}
}

// Get retrieves cached requirements, nil if invalid or expired.
func (c *InMemoryCache) Get() []*StoredRequirement {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return nil
	}
	if c.config.TTL > 0 && time.Since(c.cachedAt) > c.config.TTL {
		return nil
	}

	// Return copy to prevent external modifications.
	out := make([]*StoredRequirement, len(c.reqs))
	copy(out, c.reqs)
	return out
}

// Set stores requirements in cache.
func (c *InMemoryCache) Set(reqs []*StoredRequirement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reqs = make([]*StoredRequirement, len(reqs))
	copy(c.reqs, reqs)
	c.cachedAt = time.Now()
	c.valid = true
}

// Invalidate clears the cache.
func (c *InMemoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.reqs = nil
}
