package indicator

import (
	"sort"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
)

// CacheStats counts cache lookups.
type CacheStats struct {
	Hits   int
	Misses int
}

// Cache memoizes indicator output for a single price series.
//
// Cache is not safe for concurrent use. Two goroutines missing the same key
// would each compute it; computation is pure, so the only cost is wasted
// work, but callers should still keep one cache per goroutine.
type Cache struct {
	prices  core.PriceSeries
	entries map[Key]series.Float
	stats   CacheStats
}

// NewCache creates an empty cache bound to prices.
func NewCache(prices core.PriceSeries) *Cache {
	return &Cache{
		prices:  prices,
		entries: make(map[Key]series.Float),
	}
}

// Get returns the cached series for ind, computing it on first request.
// Failed computations are not cached.
func (c *Cache) Get(ind Indicator) (series.Float, error) {
	key := ind.Key()
	if s, ok := c.entries[key]; ok {
		c.stats.Hits++
		return s, nil
	}

	c.stats.Misses++
	s, err := ind.Compute(c.prices)
	if err != nil {
		return series.Float{}, err
	}

	c.entries[key] = s
	return s, nil
}

// Clear drops every cached series.
func (c *Cache) Clear() {
	c.entries = make(map[Key]series.Float)
}

// Len returns the number of cached series.
func (c *Cache) Len() int { return len(c.entries) }

// Keys returns the cached keys in canonical string order.
func (c *Cache) Keys() []Key {
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Stats returns lookup counters since creation.
func (c *Cache) Stats() CacheStats { return c.stats }
