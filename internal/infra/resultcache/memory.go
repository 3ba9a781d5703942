package resultcache

import (
	"context"
	"sync"
	"time"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

type memoryEntry struct {
	result    screening.AnalysisResult
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the result cache for tests/dev.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache constructs a cache backed by process memory.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements screening.ResultCache. Expiry is re-checked on every read so
// a stale entry is never served even if no sweep ran.
func (c *MemoryCache) Get(_ context.Context, key string) (screening.AnalysisResult, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return screening.AnalysisResult{}, false, nil
	}
	if c.hasExpired(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return screening.AnalysisResult{}, false, nil
	}
	return entry.result, true, nil
}

// Put caches the result with optional TTL. A zero TTL keeps the entry until
// it is overwritten.
func (c *MemoryCache) Put(_ context.Context, key string, result screening.AnalysisResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[key] = memoryEntry{result: result, expiresAt: exp}
	return nil
}

// EvictExpired removes every expired entry and reports how many were dropped.
func (c *MemoryCache) EvictExpired(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for key, entry := range c.entries {
		if c.hasExpired(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted, nil
}

func (c *MemoryCache) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(c.now())
}

var _ screening.ResultCache = (*MemoryCache)(nil)
