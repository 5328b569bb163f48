package rsi_extremes

import (
	"fmt"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/strategy"
)

// Type is the catalog name of this strategy
const Type = "rsi_extremes"

const (
	defaultOversold   = 30.0
	defaultOverbought = 70.0
)

// RSIExtremes signals on every bar where RSI sits beyond a threshold.
type RSIExtremes struct {
	period     int
	oversold   float64
	overbought float64
	rsi        indicator.RSI
}

// New creates an RSI extremes strategy. Thresholds must satisfy
// 0 < oversold < overbought < 100.
func New(period int, oversold, overbought float64) (*RSIExtremes, error) {
	if period <= 0 {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "RSI period must be positive")
	}
	if !(0 < oversold && oversold < overbought && overbought < 100) {
		return nil, core.Errorf(core.ErrInvalidConfiguration,
			"Thresholds must be: 0 < oversold < overbought < 100, got %g and %g", oversold, overbought)
	}
	rsi, err := indicator.NewRSI(period)
	if err != nil {
		return nil, err
	}
	return &RSIExtremes{period: period, oversold: oversold, overbought: overbought, rsi: rsi}, nil
}

// FromParams builds the strategy from rsi_period and optional
// oversold_threshold and overbought_threshold.
func FromParams(p strategy.Params) (strategy.Strategy, error) {
	period, err := p.Int("rsi_period")
	if err != nil {
		return nil, err
	}
	oversold, err := p.FloatOr("oversold_threshold", defaultOversold)
	if err != nil {
		return nil, err
	}
	overbought, err := p.FloatOr("overbought_threshold", defaultOverbought)
	if err != nil {
		return nil, err
	}
	return New(period, oversold, overbought)
}

// Definition describes the strategy for the catalog
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:        Type,
		Label:       "RSI Extremes",
		Description: "Buy while RSI is oversold, sell while it is overbought",
		Fields: []strategy.Field{
			{Name: "rsi_period", Label: "RSI Period", Kind: "number", Default: 14},
			{Name: "oversold_threshold", Label: "Oversold Threshold", Kind: "number", Default: defaultOversold},
			{Name: "overbought_threshold", Label: "Overbought Threshold", Kind: "number", Default: defaultOverbought},
		},
		Build: FromParams,
	}
}

func (r *RSIExtremes) Name() string { return Type }

func (r *RSIExtremes) Description() string {
	return fmt.Sprintf("RSI(%d) Extremes %g/%g", r.period, r.oversold, r.overbought)
}

func (r *RSIExtremes) RequiredIndicators() []indicator.Indicator {
	return []indicator.Indicator{r.rsi}
}

func (r *RSIExtremes) Validate(ds strategy.DataSource) error {
	return strategy.ValidateIndicators(ds, r.RequiredIndicators())
}

func (r *RSIExtremes) Signals(ds strategy.DataSource) (strategy.Signals, error) {
	if err := r.Validate(ds); err != nil {
		return strategy.Signals{}, err
	}
	rsi, err := ds.IndicatorData(r.rsi)
	if err != nil {
		return strategy.Signals{}, err
	}

	return strategy.Signals{
		Buy:  strategy.Below(rsi, r.oversold),
		Sell: strategy.Above(rsi, r.overbought),
	}, nil
}
