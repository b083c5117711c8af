package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// CachingClient decorates a Client with a short-lived in-memory decision
// cache. Decisions are cached by a deterministic hash of the query; failures
// are never cached, so an unavailable engine is re-probed on every check.
type CachingClient struct {
	inner   Client
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	decision  Decision
	expiresAt time.Time
}

// NewCachingClient wraps a client with a decision cache. ttl <= 0 disables
// caching and Evaluate degrades to a passthrough.
func NewCachingClient(inner Client, ttl time.Duration) *CachingClient {
	return &CachingClient{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Evaluate returns a cached decision when fresh, otherwise consults the
// wrapped client.
func (c *CachingClient) Evaluate(ctx context.Context, query Query) (Decision, error) {
	if c.ttl <= 0 {
		return c.inner.Evaluate(ctx, query)
	}

	key := queryKey(query)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.decision, nil
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	decision, err := c.inner.Evaluate(ctx, query)
	if err != nil {
		return Decision{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{decision: decision, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return decision, nil
}

func queryKey(query Query) string {
	// json.Marshal on the struct is deterministic: field order is fixed and
	// the resource map is emitted with sorted keys.
	payload, err := json.Marshal(query)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
