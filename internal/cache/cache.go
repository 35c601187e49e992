package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// Well-known cache categories. Each selects a default TTL.
const (
	CategoryMetadata        = "metadata"
	CategoryContentVariants = "content_variants"
	CategoryProviderHealth  = "provider_health"
)

// Config maps categories onto their default TTLs. Categories not listed use
// DefaultTTL.
type Config struct {
	CategoryTTL map[string]time.Duration
	DefaultTTL  time.Duration
}

// Stats is a point-in-time summary of the cache contents.
type Stats struct {
	EntryCount  int            `json:"total_entries"`
	PerCategory map[string]int `json:"types"`
	ApproxBytes int64          `json:"approximate_size_bytes"`
}

type entry struct {
	value     any
	category  string
	expiresAt time.Time
}

// expired is the single expiry predicate shared by Get and SweepExpired.
func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache is an in-memory key/value store with per-category expiry.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	categories map[string]time.Duration
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty Cache.
func New(cfg Config, opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		categories: make(map[string]time.Duration, len(cfg.CategoryTTL)),
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
	}
	for category, ttl := range cfg.CategoryTTL {
		c.categories[category] = ttl
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = time.Hour
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default time-to-live of category.
func (c *Cache) TTL(category string) time.Duration {
	if ttl, ok := c.categories[category]; ok && ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

// Get returns the value stored under key. An expired entry is reported as
// absent and removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// GetAs returns the value stored under key if present and of type T.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set stores value under key. The entry expires after the category's default
// TTL unless a positive override is given.
func (c *Cache) Set(key string, value any, category string, ttl ...time.Duration) {
	d := c.TTL(category)
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:     value,
		category:  category,
		expiresAt: c.now().Add(d),
	}
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// InvalidateCategory removes every entry of category and returns how many
// were removed.
func (c *Cache) InvalidateCategory(category string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.category == category {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// SweepExpired removes every expired entry and returns how many were removed.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats counts entries, including expired ones not yet swept. ApproxBytes
// is the JSON-encoded size of keys and values; values that cannot be encoded
// count only their key.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		EntryCount:  len(c.entries),
		PerCategory: make(map[string]int),
	}
	for key, e := range c.entries {
		stats.PerCategory[e.category]++
		stats.ApproxBytes += int64(len(key))
		if b, err := json.Marshal(e.value); err == nil {
			stats.ApproxBytes += int64(len(b))
		}
	}
	return stats
}
