// Package history records completed backtests for later listing and lookup.
package history

import (
	"context"
	"time"

	"github.com/newthinker/strata/internal/backtest"
)

// Store defines the interface for backtest history persistence.
type Store interface {
	// Save records a finished result.
	Save(ctx context.Context, r *backtest.Result) error

	// Get retrieves a full result by ID. Unknown IDs are core.ErrNotFound.
	Get(ctx context.Context, id string) (*backtest.Result, error)

	// List returns summaries matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Summary, error)

	// Count returns the number of results matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)

	Close() error
}

// ListFilter defines criteria for listing results.
type ListFilter struct {
	Ticker   string
	Strategy string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Summary is the listing view of a result.
type Summary struct {
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`
	Period       string    `json:"period"`
	Mode         string    `json:"mode"`
	Strategy     string    `json:"strategy"`
	TotalTrades  int       `json:"total_trades"`
	TotalReturn  float64   `json:"total_return"`
	WinRate      float64   `json:"win_rate"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	FinalCapital float64   `json:"final_capital"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summarize builds the listing view of r.
func Summarize(r *backtest.Result) Summary {
	return Summary{
		ID:           r.ID,
		Ticker:       r.Ticker,
		Period:       r.Period,
		Mode:         r.Mode,
		Strategy:     r.Strategy,
		TotalTrades:  r.Metrics.TotalTrades,
		TotalReturn:  r.Metrics.TotalReturn,
		WinRate:      r.Metrics.WinRate,
		MaxDrawdown:  r.Metrics.MaxDrawdown,
		SharpeRatio:  r.Metrics.SharpeRatio,
		FinalCapital: r.Metrics.FinalCapital,
		CreatedAt:    r.CreatedAt,
	}
}

// Open returns a SQLite store at path, or a bounded in-memory store when
// path is empty.
func Open(path string, memoryLimit int) (Store, error) {
	if path == "" {
		return NewMemoryStore(memoryLimit), nil
	}
	return NewSQLiteStore(path)
}
