package api

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache holds recent query responses. Each entry costs 1, so the size is a
// count of responses.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCache creates a cache holding up to size responses for ttl each. A
// zero ttl keeps entries until evicted.
func NewCache(size int64, ttl time.Duration) (*Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{cache: cache, ttl: ttl}, nil
}

// Get returns the cached response for key.
func (c *Cache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

// Set stores a response. Admission is asynchronous and may be refused.
func (c *Cache) Set(key string, value any) bool {
	return c.cache.SetWithTTL(key, value, 1, c.ttl)
}

// Wait blocks until pending sets are applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Clear drops every entry, for example after an import changed the graph.
func (c *Cache) Clear() {
	c.cache.Clear()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}
