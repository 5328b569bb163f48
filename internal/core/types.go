package core

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/strata/internal/series"
)

// OHLCV represents a candlestick/bar. Missing price fields are NaN.
type OHLCV struct {
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval,omitempty"` // "1d", "1h"
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	Time     time.Time `json:"time"`
}

// Field names a column of a price series.
type Field string

const (
	FieldOpen   Field = "Open"
	FieldHigh   Field = "High"
	FieldLow    Field = "Low"
	FieldClose  Field = "Close"
	FieldVolume Field = "Volume"
)

// PriceSeries is an immutable, strictly time-ordered sequence of bars for one symbol.
type PriceSeries struct {
	symbol string
	period string
	bars   []OHLCV
}

// NewPriceSeries copies bars into a PriceSeries. Timestamps must be strictly increasing.
func NewPriceSeries(symbol, period string, bars []OHLCV) (PriceSeries, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return PriceSeries{}, Errorf(ErrInvalidConfiguration,
				"bar %d (%s) is not after bar %d (%s)", i, bars[i].Time.Format(time.RFC3339),
				i-1, bars[i-1].Time.Format(time.RFC3339))
		}
	}

	owned := make([]OHLCV, len(bars))
	copy(owned, bars)

	return PriceSeries{symbol: symbol, period: period, bars: owned}, nil
}

// Symbol returns the ticker the series belongs to.
func (p PriceSeries) Symbol() string { return p.symbol }

// Period returns the lookback period the series was fetched for, e.g. "5y".
func (p PriceSeries) Period() string { return p.period }

// Len returns the number of bars.
func (p PriceSeries) Len() int { return len(p.bars) }

// Bar returns the i-th bar.
func (p PriceSeries) Bar(i int) OHLCV { return p.bars[i] }

// Bars returns a copy of the bars.
func (p PriceSeries) Bars() []OHLCV {
	out := make([]OHLCV, len(p.bars))
	copy(out, p.bars)
	return out
}

// Index returns the bar timestamps.
func (p PriceSeries) Index() []time.Time {
	idx := make([]time.Time, len(p.bars))
	for i, b := range p.bars {
		idx[i] = b.Time
	}
	return idx
}

// Column extracts one field as a time-indexed series. A price field that is
// NaN on every bar is treated as absent.
func (p PriceSeries) Column(f Field) (series.Float, error) {
	values := make([]float64, len(p.bars))
	defined := 0

	for i, b := range p.bars {
		var v float64
		switch f {
		case FieldOpen:
			v = b.Open
		case FieldHigh:
			v = b.High
		case FieldLow:
			v = b.Low
		case FieldClose:
			v = b.Close
		case FieldVolume:
			v = float64(b.Volume)
		default:
			return series.Float{}, Errorf(ErrMissingColumn, "unknown column %q", f)
		}
		if !math.IsNaN(v) {
			defined++
		}
		values[i] = v
	}

	if len(p.bars) > 0 && defined == 0 {
		return series.Float{}, Errorf(ErrMissingColumn, "%s column required", f)
	}

	return series.NewFloat(p.Index(), values), nil
}

// Closes is a shorthand for Column(FieldClose).
func (p PriceSeries) Closes() (series.Float, error) {
	return p.Column(FieldClose)
}

// String implements fmt.Stringer.
func (p PriceSeries) String() string {
	if len(p.bars) == 0 {
		return fmt.Sprintf("%s[%s]: empty", p.symbol, p.period)
	}
	return fmt.Sprintf("%s[%s]: %d bars %s..%s", p.symbol, p.period, len(p.bars),
		p.bars[0].Time.Format("2006-01-02"), p.bars[len(p.bars)-1].Time.Format("2006-01-02"))
}
