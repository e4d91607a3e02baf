package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/cocosci/fishchain/internal/model"
)

// MemoryCache implements in-memory interval caching with expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves an interval from the cache
func (c *MemoryCache) Get(key string) (model.CredibleInterval, bool) {
	if val, found := c.cache.Get(key); found {
		if ci, ok := val.(model.CredibleInterval); ok {
			return ci, true
		}
	}
	return model.CredibleInterval{}, false
}

// Set stores an interval; a zero ttl uses the cache default
func (c *MemoryCache) Set(key string, value model.CredibleInterval, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
}

// Delete removes an interval from the cache
func (c *MemoryCache) Delete(key string) {
	c.cache.Delete(key)
}

// Clear removes all intervals
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached items, including expired ones not yet cleaned up
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
