// Package respcache keeps recent read responses in memory for a bounded time.
package respcache

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Entry[V any] struct {
	Data     V
	StoredAt time.Time
	TTL      time.Duration
}

func (e Entry[V]) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

type Stats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Cache is safe for concurrent use. Expired entries are dropped lazily on Get.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]Entry[V]
	defaultTTL time.Duration
	clock      clockwork.Clock
	hits       uint64
	misses     uint64
}

type Option func(*options)

type options struct {
	clock clockwork.Clock
}

func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func New[V any](defaultTTL time.Duration, opts ...Option) *Cache[V] {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:    make(map[string]Entry[V]),
		defaultTTL: defaultTTL,
		clock:      o.clock,
	}
}

// Set stores data under key, replacing any previous entry. ttl <= 0 uses the default.
func (c *Cache[V]) Set(key string, data V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = Entry[V]{Data: data, StoredAt: c.clock.Now(), TTL: ttl}
	c.mu.Unlock()
}

func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.Lookup(key)
	return e.Data, ok
}

// Lookup is Get returning the whole entry, so callers can report its age.
func (c *Cache[V]) Lookup(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return Entry[V]{}, false
	}

	if e.expired(c.clock.Now()) {
		delete(c.entries, key)
		c.misses++
		return Entry[V]{}, false
	}

	c.hits++
	return e, true
}

// Invalidate removes every entry whose key contains substr and returns how many went.
func (c *Cache[V]) Invalidate(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.Contains(k, substr) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[V])
	c.mu.Unlock()
}

// Size counts stored entries, including expired ones not yet evicted.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
}

func (c *Cache[V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}
