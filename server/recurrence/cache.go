package recurrence

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type cacheKey [sha256.Size]byte

type cacheEntry struct {
	result     Result
	expiresAt  time.Time
	accessedAt time.Time
}

// RecurrenceCache memoizes expansions keyed by rule, first window and cap
type RecurrenceCache struct {
	entries    map[cacheKey]*cacheEntry
	mutex      sync.RWMutex
	ttl        time.Duration
	maxEntries int
	scheduler  *cron.Cron

	hits   uint64
	misses uint64
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute, // Cache results for 15 minutes
	MaxEntries:      1000,             // Keep up to 1000 cached results
	CleanupInterval: 5 * time.Minute,  // Cleanup every 5 minutes
}

// NewRecurrenceCache creates a new recurrence cache with the given configuration.
// Periodic cleanup runs on a cron scheduler until Close is called.
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &RecurrenceCache{
		entries:    make(map[cacheKey]*cacheEntry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		scheduler:  cron.New(),
	}

	cache.scheduler.Schedule(cron.Every(config.CleanupInterval), cron.FuncJob(func() {
		cache.mutex.Lock()
		cache.cleanup()
		cache.mutex.Unlock()
	}))
	cache.scheduler.Start()

	return cache
}

// keyFor digests everything an expansion depends on, including the zones of
// the first window since start and end each step in their own wall-clock time
func keyFor(rule Rule, first Window, limit int) cacheKey {
	hasher := sha256.New()

	// Rule marshalling only fails on unsupported values, which Rule never holds
	encoded, _ := json.Marshal(rule)
	hasher.Write(encoded)

	fmt.Fprintf(hasher, "|%s|%s|%s|%s|limit=%d",
		first.Start.Format(time.RFC3339Nano), first.Start.Location(),
		first.End.Format(time.RFC3339Nano), first.End.Location(),
		limit)

	var key cacheKey
	hasher.Sum(key[:0])
	return key
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *RecurrenceCache) Get(rule Rule, first Window, limit int) (Result, bool) {
	key := keyFor(rule, first, limit)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return Result{}, false
	}

	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return Result{}, false
	}

	entry.accessedAt = now
	c.hits++
	return entry.result.clone(), true
}

// Set stores a result in the cache
func (c *RecurrenceCache) Set(rule Rule, first Window, limit int, result Result) {
	key := keyFor(rule, first, limit)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		result:     result.clone(),
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup drops expired entries, then the least recently read ones until
// the cache fits maxEntries. Callers must hold the write lock.
func (c *RecurrenceCache) cleanup() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	excess := len(c.entries) - c.maxEntries
	if excess <= 0 {
		return
	}

	keys := make([]cacheKey, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b cacheKey) int {
		return c.entries[a].accessedAt.Compare(c.entries[b].accessedAt)
	})
	for _, key := range keys[:excess] {
		delete(c.entries, key)
	}
}

// Close stops the cleanup scheduler and clears the cache
func (c *RecurrenceCache) Close() {
	<-c.scheduler.Stop().Done()
	c.mutex.Lock()
	c.entries = make(map[cacheKey]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           uint64
	Misses         uint64
}
