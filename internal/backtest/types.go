package backtest

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/strata/internal/notifier"
	"github.com/newthinker/strata/internal/strategy"
)

// Amount is a money value that decodes from a JSON number or numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	f, err := cast.ToFloat64E(value.Value)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Request describes one backtest run
type Request struct {
	Ticker         string            `json:"ticker" yaml:"ticker" validate:"required,max=20"`
	Period         string            `json:"period" yaml:"period" validate:"required"`
	InitialCapital Amount            `json:"initial_capital" yaml:"initial_capital" validate:"gte=0"`
	Strategies     []strategy.Config `json:"strategies" yaml:"strategies" validate:"required,min=1,dive"`
	Mode           string            `json:"mode" yaml:"mode" validate:"omitempty,oneof=all any majority"`
}

// Trade represents a closed round trip from entry to exit
type Trade struct {
	EntryDate    time.Time `json:"entry_date"`
	ExitDate     time.Time `json:"exit_date"`
	EntryPrice   float64   `json:"entry_price"`
	ExitPrice    float64   `json:"exit_price"`
	Return       float64   `json:"return"`
	DurationDays int       `json:"duration_days"`
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// IsLoss returns true if the trade lost money; flat trades are neither
func (t Trade) IsLoss() bool {
	return t.Return < 0
}

// OpenPosition is an entry still held when the price series ends. It is
// reported for information only and never counted in Metrics.
type OpenPosition struct {
	EntryDate        time.Time `json:"entry_date"`
	EntryPrice       float64   `json:"entry_price"`
	LastDate         time.Time `json:"last_date"`
	LastPrice        float64   `json:"last_price"`
	UnrealizedReturn float64   `json:"unrealized_return"`
}

// Metrics holds performance statistics
type Metrics struct {
	TotalReturn       float64 `json:"total_return"`
	WinRate           float64 `json:"win_rate"`
	TotalTrades       int     `json:"total_trades"`
	WinningTrades     int     `json:"winning_trades"`
	LosingTrades      int     `json:"losing_trades"`
	AvgReturnPerTrade float64 `json:"avg_return_per_trade"`
	AvgWinningTrade   float64 `json:"avg_winning_trade"`
	AvgLosingTrade    float64 `json:"avg_losing_trade"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	InitialCapital    float64 `json:"initial_capital"`
	FinalCapital      float64 `json:"final_capital"`
}

// SignalEvent is one buy or sell marker
type SignalEvent struct {
	Date   time.Time `json:"date"`
	Action string    `json:"action"` // "buy" or "sell"
}

// Result holds the complete backtest output
type Result struct {
	ID           string            `json:"id"`
	Ticker       string            `json:"ticker"`
	Period       string            `json:"period"`
	Mode         string            `json:"mode"`
	Strategy     string            `json:"strategy"`
	Strategies   []strategy.Config `json:"strategies"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	Bars         int               `json:"bars"`
	Metrics      Metrics           `json:"metrics"`
	Trades       []Trade           `json:"trades"`
	Signals      []SignalEvent     `json:"signals"`
	OpenPosition *OpenPosition     `json:"open_position,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Event is the notification summary of r.
func (r *Result) Event() notifier.Event {
	return notifier.Event{
		ID:           r.ID,
		Ticker:       r.Ticker,
		Period:       r.Period,
		Strategy:     r.Strategy,
		TotalReturn:  r.Metrics.TotalReturn,
		WinRate:      r.Metrics.WinRate,
		MaxDrawdown:  r.Metrics.MaxDrawdown,
		SharpeRatio:  r.Metrics.SharpeRatio,
		Trades:       r.Metrics.TotalTrades,
		OpenPosition: r.OpenPosition != nil,
		CompletedAt:  r.CreatedAt,
	}
}
