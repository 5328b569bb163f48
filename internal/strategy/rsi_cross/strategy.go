package rsi_cross

import (
	"fmt"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/strategy"
)

// Type is the catalog name of this strategy
const Type = "rsi_cross"

// RSICross buys when RSI recovers upward through the lower bound and sells
// when it falls back through the upper bound.
type RSICross struct {
	period int
	lower  float64
	upper  float64
	rsi    indicator.RSI
}

// New creates an RSI cross strategy. Bounds must satisfy 0 < lower < upper < 100.
func New(period int, lower, upper float64) (*RSICross, error) {
	if period <= 0 {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "RSI period must be positive")
	}
	if !(0 < lower && lower < upper && upper < 100) {
		return nil, core.Errorf(core.ErrInvalidConfiguration,
			"Bounds must be: 0 < lower_bound < upper_bound < 100, got %g and %g", lower, upper)
	}
	rsi, err := indicator.NewRSI(period)
	if err != nil {
		return nil, err
	}
	return &RSICross{period: period, lower: lower, upper: upper, rsi: rsi}, nil
}

// FromParams builds the strategy from rsi_period, lower_bound and upper_bound.
func FromParams(p strategy.Params) (strategy.Strategy, error) {
	period, err := p.Int("rsi_period")
	if err != nil {
		return nil, err
	}
	lower, err := p.Float("lower_bound")
	if err != nil {
		return nil, err
	}
	upper, err := p.Float("upper_bound")
	if err != nil {
		return nil, err
	}
	return New(period, lower, upper)
}

// Definition describes the strategy for the catalog
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:        Type,
		Label:       "RSI Cross",
		Description: "Buy when RSI crosses up through the lower bound, sell when it crosses down through the upper bound",
		Fields: []strategy.Field{
			{Name: "rsi_period", Label: "RSI Period", Kind: "number", Default: 14},
			{Name: "lower_bound", Label: "Lower Bound", Kind: "number", Default: 30},
			{Name: "upper_bound", Label: "Upper Bound", Kind: "number", Default: 70},
		},
		Build: FromParams,
	}
}

func (r *RSICross) Name() string { return Type }

func (r *RSICross) Description() string {
	return fmt.Sprintf("RSI(%d) Cross %g/%g", r.period, r.lower, r.upper)
}

func (r *RSICross) RequiredIndicators() []indicator.Indicator {
	return []indicator.Indicator{r.rsi}
}

func (r *RSICross) Validate(ds strategy.DataSource) error {
	return strategy.ValidateIndicators(ds, r.RequiredIndicators())
}

func (r *RSICross) Signals(ds strategy.DataSource) (strategy.Signals, error) {
	if err := r.Validate(ds); err != nil {
		return strategy.Signals{}, err
	}
	rsi, err := ds.IndicatorData(r.rsi)
	if err != nil {
		return strategy.Signals{}, err
	}

	return strategy.Signals{
		Buy:  strategy.CrossAboveLevel(rsi, r.lower),
		Sell: strategy.CrossBelowLevel(rsi, r.upper),
	}, nil
}
