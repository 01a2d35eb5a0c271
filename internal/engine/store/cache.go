package store

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// BlockSize is the granularity of cached regions. Reads are
	// assembled from block-aligned slices of the tree.
	BlockSize = 64 << 10

	// DefaultCacheBudget bounds the bytes of materialized text held
	// by the region cache.
	DefaultCacheBudget = 16 << 20
)

// CacheStats is a point-in-time snapshot of region cache counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// regionCache holds materialized block-aligned slices of the current
// tree, keyed by block index. Entries never outlive the version they
// were cut from; every edit invalidates the blocks it touches.
type regionCache struct {
	blocks *lru.Cache[int64, string]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func newRegionCache(budget int64) *regionCache {
	entries := int(budget / BlockSize)
	if entries < 1 {
		entries = 1
	}
	c := &regionCache{}
	// The callback fires for capacity evictions and explicit
	// invalidations alike, so Evictions counts entries dropped for
	// any reason.
	c.blocks, _ = lru.NewWithEvict[int64, string](entries, func(int64, string) {
		c.evictions.Add(1)
	})
	return c
}

func (c *regionCache) get(block int64) (string, bool) {
	text, ok := c.blocks.Get(block)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return text, ok
}

func (c *regionCache) add(block int64, text string) {
	c.blocks.Add(block, text)
}

// invalidateRange drops blocks first through last inclusive.
func (c *regionCache) invalidateRange(first, last int64) {
	for b := first; b <= last; b++ {
		c.blocks.Remove(b)
	}
}

// invalidateFrom drops every cached block at or after first.
func (c *regionCache) invalidateFrom(first int64) {
	for _, b := range c.blocks.Keys() {
		if b >= first {
			c.blocks.Remove(b)
		}
	}
}

func (c *regionCache) purge() {
	c.blocks.Purge()
}

func (c *regionCache) stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.blocks.Len(),
	}
}
