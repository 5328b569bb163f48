package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Event summarizes one finished backtest
type Event struct {
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`
	Period       string    `json:"period"`
	Strategy     string    `json:"strategy"`
	TotalReturn  float64   `json:"total_return"`
	WinRate      float64   `json:"win_rate"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	Trades       int       `json:"total_trades"`
	OpenPosition bool      `json:"open_position"`
	CompletedAt  time.Time `json:"completed_at"`
	Alerts       []string  `json:"alerts,omitempty"`
}

// Metrics exposes the numeric fields by their JSON names for rule matching.
func (e Event) Metrics() map[string]float64 {
	return map[string]float64{
		"total_return": e.TotalReturn,
		"win_rate":     e.WinRate,
		"max_drawdown": e.MaxDrawdown,
		"sharpe_ratio": e.SharpeRatio,
		"total_trades": float64(e.Trades),
	}
}

// Notifier delivers backtest results to an external channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single result
	Send(ctx context.Context, ev Event) error

	// SendBatch delivers a ranked comparison in one message
	SendBatch(ctx context.Context, evs []Event) error
}
