package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// Entry is a cached raw provider response.
type Entry struct {
	Raw       []byte    `json:"raw"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Cache stores raw provider responses. ttl is the retention time; freshness
// is decided by the caller from FetchedAt.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheKey builds the cache key for a query. Locations compare
// case-insensitively with collapsed whitespace.
func CacheKey(q Query) string {
	location := strings.ToLower(strings.Join(strings.Fields(q.Location), " "))
	return fmt.Sprintf("recommendations:v1:%s:%d", location, q.Limit)
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryCacheWithClock creates an empty MemoryCache that reads time
// from now.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	c := NewMemoryCache()
	c.now = now
	return c
}

// Get returns a copy of the entry for key.
func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, ErrCacheMiss
	}

	entry := e.entry
	entry.Raw = append([]byte(nil), e.entry.Raw...)
	return &entry, nil
}

// Set stores a copy of entry for ttl. Expired entries are swept on write.
func (c *MemoryCache) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	stored := *entry
	stored.Raw = append([]byte(nil), entry.Raw...)
	c.entries[key] = memoryEntry{entry: stored, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

var _ Cache = (*MemoryCache)(nil)
