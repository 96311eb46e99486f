// Package cache provides a small in-process result cache used by the web
// layer to avoid re-running store scans and graph queries on every request.
package cache

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ResultCache is an in-memory LRU cache with TTL
type ResultCache struct {
	cache *lru.LRU[string, interface{}]
	mu    sync.RWMutex
}

// New creates a new result cache
func New(size int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		cache: lru.NewLRU[string, interface{}](size, nil, ttl),
	}
}

// Get retrieves a cached value
func (c *ResultCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cache.Get(key)
}

// Set stores a value
func (c *ResultCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, value)
}

// DeletePrefix removes all keys with the given prefix
func (c *ResultCache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}

// Purge empties the cache
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
}
