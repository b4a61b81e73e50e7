package translator

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	text, source, target string
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// ttlCache wraps a bounded LRU with a short per-entry expiry, avoiding
// re-translation of an identical (text, source, target) triple within its
// TTL. The text is used as given; it is not normalized before lookup.
type ttlCache struct {
	mu  sync.Mutex
	lru *lru.Cache[cacheKey, cacheEntry]
	ttl time.Duration
}

func newTTLCache(size int, ttl time.Duration) *ttlCache {
	c, _ := lru.New[cacheKey, cacheEntry](size)
	return &ttlCache{lru: c, ttl: ttl}
}

func (c *ttlCache) get(text, source, target string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lru.Get(cacheKey{text, source, target})
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (c *ttlCache) set(text, source, target, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(cacheKey{text, source, target}, cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)})
}
