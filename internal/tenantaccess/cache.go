package tenantaccess

import (
	"sync"
	"time"
)

// accessCache memoizes per-(principal, tenant) membership checks for a short
// TTL. Tenant-access resolution and policy evaluation are cached
// independently, each with its own explicit TTL.
type accessCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]accessEntry
}

type accessEntry struct {
	allowed   bool
	expiresAt time.Time
}

func newAccessCache(ttl time.Duration) *accessCache {
	return &accessCache{
		ttl:     ttl,
		entries: make(map[string]accessEntry),
	}
}

func (c *accessCache) get(key string) (bool, bool) {
	if c == nil || c.ttl <= 0 {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return false, false
	}
	return entry.allowed, true
}

func (c *accessCache) put(key string, allowed bool) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = accessEntry{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
}

// invalidate drops every cached entry for a principal. Called on membership
// mutations so revocations take effect within the same request cycle.
func (c *accessCache) invalidate(prefix string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}
