package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheFixture() (Rule, Window, Result) {
	rule := Rule{Type: Daily, Interval: 1, EndType: EndAfterOccurrences, OccurrencesCount: mo.Some(2)}
	first := Window{Start: date(2024, 1, 1, 10, 0), End: date(2024, 1, 1, 11, 0)}
	result := Result{
		Windows: []Window{first, {Start: date(2024, 1, 2, 10, 0), End: date(2024, 1, 2, 11, 0)}},
		Reason:  StopCount,
	}
	return rule, first, result
}

func TestRecurrenceCache_BasicOperations(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	rule, first, result := cacheFixture()

	_, found := cache.Get(rule, first, 10)
	assert.False(t, found, "expected cache miss")

	cache.Set(rule, first, 10, result)

	got, found := cache.Get(rule, first, 10)
	require.True(t, found, "expected cache hit")
	assert.Equal(t, result, got)

	// A different cap is a different expansion
	_, found = cache.Get(rule, first, 11)
	assert.False(t, found)

	// So is a different rule
	other := rule
	other.Interval = 2
	_, found = cache.Get(other, first, 10)
	assert.False(t, found)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
}

func TestRecurrenceCache_TTLExpiration(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             100 * time.Millisecond, // Very short TTL for testing
		MaxEntries:      100,
		CleanupInterval: time.Minute,
	})
	defer cache.Close()

	rule, first, result := cacheFixture()
	cache.Set(rule, first, 10, result)

	_, found := cache.Get(rule, first, 10)
	require.True(t, found, "expected cache hit immediately after set")

	time.Sleep(150 * time.Millisecond)

	_, found = cache.Get(rule, first, 10)
	assert.False(t, found, "expected entry to expire")
	assert.Equal(t, 0, cache.Stats().TotalEntries)
}

func TestRecurrenceCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             time.Hour,
		MaxEntries:      3,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	rule, first, result := cacheFixture()
	for limit := 1; limit <= 3; limit++ {
		cache.Set(rule, first, limit, result)
		time.Sleep(2 * time.Millisecond)
	}

	// Touch the oldest entry so the second one becomes the eviction candidate
	_, found := cache.Get(rule, first, 1)
	require.True(t, found)
	time.Sleep(2 * time.Millisecond)

	cache.Set(rule, first, 4, result)

	assert.Equal(t, 3, cache.Stats().TotalEntries)
	_, found = cache.Get(rule, first, 2)
	assert.False(t, found, "least recently accessed entry should be evicted")
	_, found = cache.Get(rule, first, 1)
	assert.True(t, found)
}

func TestRecurrenceCache_ReturnsCopies(t *testing.T) {
	cache := NewRecurrenceCache(DefaultCacheConfig)
	defer cache.Close()

	rule, first, result := cacheFixture()
	cache.Set(rule, first, 10, result)
	result.Windows[0] = Window{}

	got, found := cache.Get(rule, first, 10)
	require.True(t, found)
	assert.Equal(t, first, got.Windows[0])

	got.Windows[1] = Window{}
	again, _ := cache.Get(rule, first, 10)
	assert.NotEqual(t, Window{}, again.Windows[1])
}

func TestRecurrenceCache_Concurrency(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             time.Minute,
		MaxEntries:      50,
		CleanupInterval: time.Second,
	})
	defer cache.Close()

	rule, first, result := cacheFixture()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				limit := g*100 + i
				cache.Set(rule, first, limit, result)
				cache.Get(rule, first, limit)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().TotalEntries, 50, fmt.Sprintf("stats: %+v", cache.Stats()))
}

func TestRecurrenceCache_KeySeparatesEndZone(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{TTL: time.Minute, MaxEntries: 10, CleanupInterval: time.Minute})
	defer cache.Close()

	rule, first, result := cacheFixture()
	cache.Set(rule, first, 10, result)

	// Same instant and offset as first.End, different zone
	other := first
	other.End = first.End.In(time.FixedZone("Elsewhere", 0))
	require.Equal(t, first.End.Format(time.RFC3339Nano), other.End.Format(time.RFC3339Nano))

	_, found := cache.Get(rule, other, 10)
	assert.False(t, found, "end zone must be part of the key")
	assert.NotEqual(t, keyFor(rule, first, 10), keyFor(rule, other, 10))
}
