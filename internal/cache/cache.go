package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

// Cache defines the interface for zone catalog caching implementations.
// Get returns cached zones if present and not expired, Set stores zones with
// an absolute TTL measured from the time of the call.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Zone, bool, error)
	Set(ctx context.Context, key string, value []models.Zone, ttl time.Duration) error
}

// InMemoryCache implements Cache using an in-memory map with TTL-based
// expiration. Expired entries are removed on access. Safe for concurrent use;
// concurrent Sets for the same key converge to a single stored value (last
// write wins) and readers never observe a partially written slice.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// cacheEntry stores a zone slice with its expiration timestamp.
type cacheEntry struct {
	value     []models.Zone
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves cached zones for the key if present and not expired.
// Returns (zones, true, nil) on cache hit, (nil, false, nil) on miss or
// expiration. Expired entries are removed from the cache.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]models.Zone, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have refreshed.
		if cur, ok := c.data[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores zones in the cache with the specified TTL duration.
// The entry expires after TTL elapses and is removed on next Get access.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []models.Zone, ttl time.Duration) error {
	c.mu.Lock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}
