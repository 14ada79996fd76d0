package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSize bounds the shared result cache.
const DefaultSize = 256

// Key derives a cache key from a statement and the active extractor set.
// The extractor list is order-insensitive: the same statement with the same
// adapters enabled always maps to the same entry.
func Key(text string, extractors []string) string {
	names := make([]string, len(extractors))
	copy(names, extractors)
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(names, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a bounded LRU shared across pipelines. Values pass through the
// clone function on the way in and out, so callers can mutate what they get
// back without corrupting the cached copy. Concurrent computations of the
// same key collapse into one.
type Cache[V any] struct {
	lru   *lru.Cache[string, V]
	group singleflight.Group
	clone func(V) V

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheParams contains configuration options for creating a Cache.
// Clone is required for values carrying maps or slices; nil means values
// are safe to share as-is.
type NewCacheParams[V any] struct {
	Size  int
	Clone func(V) V
}

// New creates a bounded cache.
func New[V any](params NewCacheParams[V]) (*Cache[V], error) {
	size := params.Size
	if size <= 0 {
		size = DefaultSize
	}
	inner, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	cloneFn := params.Clone
	if cloneFn == nil {
		cloneFn = func(v V) V { return v }
	}
	return &Cache[V]{lru: inner, clone: cloneFn}, nil
}

// Get returns a copy of the cached value for key, if present.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return c.clone(v), true
}

// Add stores a copy of value under key, evicting the least recently used
// entry when full.
func (c *Cache[V]) Add(key string, value V) {
	c.lru.Add(key, c.clone(value))
}

// Do returns the cached value for key or computes it once, no matter how
// many callers ask concurrently. Compute errors are returned to every
// waiting caller and nothing is cached.
func (c *Cache[V]) Do(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// A racing caller may have filled the entry while this one was
		// queueing on the flight group.
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return c.clone(result.(V)), nil
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Stats returns hit and miss counts since creation.
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
