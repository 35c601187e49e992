package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(clock *fakeClock) *Cache {
	return New(Config{
		CategoryTTL: map[string]time.Duration{
			CategoryMetadata:        time.Hour,
			CategoryContentVariants: 30 * time.Minute,
			CategoryProviderHealth:  5 * time.Minute,
		},
		DefaultTTL: time.Hour,
	}, WithClock(clock.Now))
}

func TestCache_SetGetAndCategoryExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.Set("k", "v", CategoryMetadata)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	// Exactly at the expiry instant the entry is still present.
	clock.Advance(time.Hour)
	_, ok = c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().EntryCount, "lazy expiry removes the entry")
}

func TestCache_DefaultTTLPerCategory(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.Set("health", true, CategoryProviderHealth)
	c.Set("langs", []string{"en"}, CategoryContentVariants)
	c.Set("other", 1, "unknown")

	clock.Advance(5*time.Minute + time.Second)
	_, ok := c.Get("health")
	assert.False(t, ok)
	_, ok = c.Get("langs")
	assert.True(t, ok)

	clock.Advance(30 * time.Minute)
	_, ok = c.Get("langs")
	assert.False(t, ok)
	_, ok = c.Get("other")
	assert.True(t, ok, "unknown categories fall back to the default TTL")
}

func TestCache_TTLOverride(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.Set("short", "v", CategoryMetadata, time.Second)
	clock.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestCache_SweepExpiredRemovesExactlyExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.Set("a", 1, CategoryProviderHealth)
	c.Set("b", 2, CategoryProviderHealth)
	c.Set("c", 3, CategoryMetadata)

	assert.Equal(t, 0, c.SweepExpired())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 3, c.Stats().EntryCount, "expired entries linger until swept")
	assert.Equal(t, 2, c.SweepExpired())

	stats := c.Stats()
	assert.Equal(t, 1, stats.EntryCount)
	assert.Equal(t, map[string]int{CategoryMetadata: 1}, stats.PerCategory)
}

func TestCache_DeleteAndInvalidateCategory(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	c.Set("video_info:1", "a", CategoryMetadata)
	c.Set("video_info:2", "b", CategoryMetadata)
	c.Set("provider_health:google", true, CategoryProviderHealth)

	assert.True(t, c.Delete("video_info:1"))
	assert.False(t, c.Delete("video_info:1"))

	assert.Equal(t, 1, c.InvalidateCategory(CategoryMetadata))
	assert.Equal(t, 0, c.InvalidateCategory(CategoryMetadata))
	assert.Equal(t, 1, c.Stats().EntryCount)
}

func TestCache_GetAs(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())
	c.Set("n", 42, CategoryMetadata)

	n, ok := GetAs[int](c, "n")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = GetAs[string](c, "n")
	assert.False(t, ok)

	_, ok = GetAs[int](c, "missing")
	assert.False(t, ok)
}

func TestCache_StatsApproximateSize(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())
	c.Set("key", "value", CategoryMetadata)

	// len("key") + len(`"value"`)
	assert.Equal(t, int64(10), c.Stats().ApproxBytes)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			c.Set(key, i, CategoryMetadata)
			c.Get(key)
			c.SweepExpired()
			c.Stats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, c.Stats().EntryCount)
}
