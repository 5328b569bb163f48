package macd_histogram

import (
	"fmt"

	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/strategy"
	"github.com/newthinker/strata/internal/strategy/macd_cross"
)

// Type is the catalog name of this strategy
const Type = "macd_histogram"

// MACDHistogram trades zero crossings of the MACD histogram.
type MACDHistogram struct {
	short, long, signal int
	hist                indicator.MACDHistogram
}

// New creates a MACD histogram strategy.
func New(short, long, signal int) (*MACDHistogram, error) {
	if err := macd_cross.CheckPeriods(short, long, signal); err != nil {
		return nil, err
	}
	hist, err := indicator.NewMACDHistogram(short, long, signal)
	if err != nil {
		return nil, err
	}
	return &MACDHistogram{short: short, long: long, signal: signal, hist: hist}, nil
}

// FromParams builds the strategy from the MACD period parameters.
func FromParams(p strategy.Params) (strategy.Strategy, error) {
	short, long, signal, err := macd_cross.PeriodsFromParams(p)
	if err != nil {
		return nil, err
	}
	return New(short, long, signal)
}

// Definition describes the strategy for the catalog
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:        Type,
		Label:       "MACD Histogram",
		Description: "Buy when the MACD histogram turns positive, sell when it turns negative",
		Fields:      macd_cross.PeriodFields(),
		Build:       FromParams,
	}
}

func (m *MACDHistogram) Name() string { return Type }

func (m *MACDHistogram) Description() string {
	return fmt.Sprintf("MACD(%d,%d,%d) Histogram", m.short, m.long, m.signal)
}

func (m *MACDHistogram) RequiredIndicators() []indicator.Indicator {
	return []indicator.Indicator{m.hist}
}

func (m *MACDHistogram) Validate(ds strategy.DataSource) error {
	return strategy.ValidateIndicators(ds, m.RequiredIndicators())
}

func (m *MACDHistogram) Signals(ds strategy.DataSource) (strategy.Signals, error) {
	if err := m.Validate(ds); err != nil {
		return strategy.Signals{}, err
	}
	hist, err := ds.IndicatorData(m.hist)
	if err != nil {
		return strategy.Signals{}, err
	}

	return strategy.Signals{
		Buy:  strategy.CrossAboveLevel(hist, 0),
		Sell: strategy.CrossBelowLevel(hist, 0),
	}, nil
}
