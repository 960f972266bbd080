package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/samber/mo"
)

// cacheEntry represents a cached expansion result.
type cacheEntry struct {
	instants   []time.Time
	expiresAt  time.Time
	accessedAt time.Time
}

// expansionCache caches rule expansion results. Expansion is deterministic
// for identical inputs, so entries only expire to bound memory, never for
// correctness.
type expansionCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// CacheConfig holds configuration for the expansion cache.
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for expansion caching.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

func newExpansionCache(config CacheConfig) *expansionCache {
	cache := &expansionCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go cache.cleanupLoop()
	return cache
}

// cacheKey hashes the rule content and expansion bounds.
func cacheKey(r *Rule, start, until time.Time) string {
	hasher := sha256.New()
	if r != nil {
		hasher.Write([]byte(r.Frequency))
		hasher.Write([]byte{0})
		hasher.Write([]byte(r.Params))
		hasher.Write([]byte{0})
		hasher.Write([]byte(r.ComplexRule))
		hasher.Write([]byte{0})
	}
	hasher.Write([]byte(start.Format(time.RFC3339Nano)))
	hasher.Write([]byte(until.Format(time.RFC3339Nano)))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// get retrieves a cached expansion if present and not expired.
func (c *expansionCache) get(r *Rule, start, until time.Time) mo.Option[[]time.Time] {
	key := cacheKey(r, start, until)

	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return mo.None[[]time.Time]()
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return mo.None[[]time.Time]()
	}

	c.mutex.Lock()
	entry.accessedAt = now
	c.mutex.Unlock()

	return mo.Some(entry.instants)
}

// set stores an expansion result.
func (c *expansionCache) set(r *Rule, start, until time.Time, instants []time.Time) {
	key := cacheKey(r, start, until)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		instants:   instants,
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed entries
// while over the limit. Callers must hold the write lock.
func (c *expansionCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldestAccess time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.accessedAt.Before(oldestAccess) {
				oldestKey = key
				oldestAccess = entry.accessedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

func (c *expansionCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// close stops the cleanup goroutine and clears the cache.
func (c *expansionCache) close() {
	close(c.stopCleanup)
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// CacheStats provides information about cache usage.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

func (c *expansionCache) stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}
