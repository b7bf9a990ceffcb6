package cache

import (
	"sync"
	"time"

	"clinicdesk/internal/models"
)

// ResolutionCache stores identity resolution outcomes keyed by the masked
// address. Implementations decide the storage; the resolver only depends on
// this interface so a shared cache can be swapped in later.
type ResolutionCache interface {
	Get(key string) (models.IdentityResolution, bool)
	Set(key string, value models.IdentityResolution, ttl time.Duration)
}

type entry struct {
	value     models.IdentityResolution
	expiresAt time.Time
}

// MemoryResolutionCache is an in-process cache with per-entry expiry.
// State is process-local; concurrently running instances each keep their
// own cache and may issue duplicate resolution calls, which is acceptable
// because resolution is read-mostly and idempotent.
type MemoryResolutionCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryResolutionCache creates an empty in-process cache.
func NewMemoryResolutionCache() *MemoryResolutionCache {
	return &MemoryResolutionCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached resolution if present and not expired. Expired
// entries are removed lazily.
func (c *MemoryResolutionCache) Get(key string) (models.IdentityResolution, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return models.IdentityResolution{}, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry in the meantime.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return models.IdentityResolution{}, false
	}
	return e.value, true
}

// Set stores a resolution outcome with the given lifetime.
func (c *MemoryResolutionCache) Set(key string, value models.IdentityResolution, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Len reports the number of stored entries, including not-yet-evicted
// expired ones.
func (c *MemoryResolutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
