package token

import (
	"context"
	"sync"
	"time"
)

// Token is a cached access token with its usable-until deadline.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache is the two-tier token cache contract. It is a performance
// optimization only; the credential store remains the source of truth and
// the refresher rehydrates from it on every miss.
type Cache interface {
	Get(ctx context.Context, key string) (Token, bool)
	Put(ctx context.Context, key string, tok Token, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type memoryEntry struct {
	tok      Token
	deadline time.Time
}

// MemoryCache is the default process-local cache tier.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (Token, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.deadline) {
		return Token{}, false
	}
	return entry.tok, true
}

func (c *MemoryCache) Put(ctx context.Context, key string, tok Token, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{tok: tok, deadline: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes a cached token. Used when a subject disconnects.
func (c *MemoryCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
