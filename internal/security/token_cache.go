package security

import (
	"sync"
	"time"
)

// CachedToken is a generic TTL cache entry for CSRF/session tokens.
type CachedToken struct {
	Key       string
	Value     string
	Type      string
	ExpiresAt time.Time
}

// TokenCache is a TTL-keyed in-memory map used to avoid regenerating
// tokens within their TTL window.
type TokenCache struct {
	mu      sync.Mutex
	entries map[string]CachedToken
	now     func() time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{
		entries: make(map[string]CachedToken),
		now:     time.Now,
	}
}

// Set stores a value under key for ttl.
func (c *TokenCache) Set(key, value, tokenType string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CachedToken{
		Key:       key,
		Value:     value,
		Type:      tokenType,
		ExpiresAt: c.now().Add(ttl),
	}
}

// Get returns the live entry for key. Expired entries are deleted on read.
func (c *TokenCache) Get(key string) (CachedToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return CachedToken{}, false
	}
	if c.now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		return CachedToken{}, false
	}
	return entry, true
}

// GetOrCreate returns the cached value for key, or invokes create and
// caches its result for ttl. The returned bool reports a cache hit.
func (c *TokenCache) GetOrCreate(key, tokenType string, ttl time.Duration, create func() (string, error)) (string, bool, error) {
	if entry, ok := c.Get(key); ok {
		return entry.Value, true, nil
	}

	value, err := create()
	if err != nil {
		return "", false, err
	}

	c.Set(key, value, tokenType, ttl)
	return value, false, nil
}

// Delete removes the entry for key.
func (c *TokenCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// ClearExpired sweeps all entries past their expiry.
func (c *TokenCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Purge drops every entry.
func (c *TokenCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]CachedToken)
	c.mu.Unlock()
}

// SetClock overrides the time source. Test hook.
func (c *TokenCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
