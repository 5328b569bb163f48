package strategy

import (
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/series"
)

// Config selects a strategy type and its parameters
type Config struct {
	Type   string         `json:"type" yaml:"type" validate:"required"`
	Params map[string]any `json:"params" yaml:"params"`
}

// DataSource provides prices and memoized indicators to strategies
type DataSource interface {
	Prices() core.PriceSeries
	IndicatorData(ind indicator.Indicator) (series.Float, error)
}

// Signals holds buy and sell markers aligned to a time index
type Signals struct {
	Buy  series.Bool
	Sell series.Bool
}

// Strategy defines the interface for trading strategies
type Strategy interface {
	Name() string
	Description() string
	RequiredIndicators() []indicator.Indicator

	// Validate computes every required indicator and reports the first
	// failure as ErrDataValidation.
	Validate(ds DataSource) error
	Signals(ds DataSource) (Signals, error)
}

// ValidateIndicators computes each indicator through ds, wrapping the first
// failure as ErrDataValidation.
func ValidateIndicators(ds DataSource, inds []indicator.Indicator) error {
	for _, ind := range inds {
		if _, err := ds.IndicatorData(ind); err != nil {
			return core.WrapError(core.ErrDataValidation, err)
		}
	}
	return nil
}
