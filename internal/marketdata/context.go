// Package marketdata loads price history for a ticker and exposes it,
// together with a per-series indicator cache, to strategies.
package marketdata

import (
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/series"
)

// Context owns one immutable price series and the indicator cache built on
// it. A Context belongs to a single request and must not be shared across
// goroutines.
type Context struct {
	prices core.PriceSeries
	cache  *indicator.Cache
}

// NewContext wraps prices with an empty indicator cache.
func NewContext(prices core.PriceSeries) *Context {
	return &Context{
		prices: prices,
		cache:  indicator.NewCache(prices),
	}
}

func (c *Context) Prices() core.PriceSeries { return c.prices }

// IndicatorData returns ind computed over the context's prices, memoized.
func (c *Context) IndicatorData(ind indicator.Indicator) (series.Float, error) {
	return c.cache.Get(ind)
}

// CacheStats reports indicator cache hits and misses.
func (c *Context) CacheStats() indicator.CacheStats { return c.cache.Stats() }

// ClearCache drops every memoized indicator.
func (c *Context) ClearCache() { c.cache.Clear() }
