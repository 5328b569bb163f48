package collector

import (
	"context"
	"time"

	"github.com/newthinker/strata/internal/core"
)

// Config holds collector configuration
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	DataDir    string
	Extra      map[string]any
}

// Collector fetches historical bars from a market data source
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchHistory returns bars for symbol in [start, end], oldest first.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Writer is implemented by collectors that can also persist bars.
type Writer interface {
	WriteHistory(ctx context.Context, bars []core.OHLCV) error
}
