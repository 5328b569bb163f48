package ma_crossover

import (
	"fmt"
	"strings"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/series"
	"github.com/newthinker/strata/internal/strategy"
)

// Type is the catalog name of this strategy
const Type = "moving_average_cross"

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	lowerPeriod int
	upperPeriod int
	maType      string
	lower       indicator.Indicator
	upper       indicator.Indicator
}

// New creates a new MA Crossover strategy. maType is "SMA" or "EMA".
func New(lowerPeriod, upperPeriod int, maType string) (*MACrossover, error) {
	if lowerPeriod <= 0 || upperPeriod <= 0 {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "periods must be positive")
	}
	if lowerPeriod >= upperPeriod {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "lower_period must be less than upper_period")
	}

	m := &MACrossover{
		lowerPeriod: lowerPeriod,
		upperPeriod: upperPeriod,
		maType:      strings.ToUpper(maType),
	}
	switch m.maType {
	case "SMA":
		m.lower, _ = indicator.NewSMA(lowerPeriod)
		m.upper, _ = indicator.NewSMA(upperPeriod)
	case "EMA":
		m.lower, _ = indicator.NewEMA(lowerPeriod)
		m.upper, _ = indicator.NewEMA(upperPeriod)
	default:
		return nil, core.Errorf(core.ErrInvalidConfiguration, "ma_type must be 'SMA' or 'EMA', got %q", maType)
	}
	return m, nil
}

// FromParams builds the strategy from lower_period, upper_period and ma_type.
func FromParams(p strategy.Params) (strategy.Strategy, error) {
	lower, err := p.Int("lower_period")
	if err != nil {
		return nil, err
	}
	upper, err := p.Int("upper_period")
	if err != nil {
		return nil, err
	}
	maType, err := p.String("ma_type")
	if err != nil {
		return nil, err
	}
	return New(lower, upper, maType)
}

// Definition describes the strategy for the catalog
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:        Type,
		Label:       "Moving Average Cross",
		Description: "Buy when the faster average crosses above the slower one, sell on the opposite cross",
		Fields: []strategy.Field{
			{Name: "lower_period", Label: "Lower Period", Kind: "number", Default: 50},
			{Name: "upper_period", Label: "Upper Period", Kind: "number", Default: 200},
			{Name: "ma_type", Label: "MA Type", Kind: "select", Options: []string{"SMA", "EMA"}, Default: "SMA"},
		},
		Build: FromParams,
	}
}

func (m *MACrossover) Name() string {
	return Type
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("%s Crossover (%d/%d)", m.maType, m.lowerPeriod, m.upperPeriod)
}

func (m *MACrossover) RequiredIndicators() []indicator.Indicator {
	return []indicator.Indicator{m.lower, m.upper}
}

func (m *MACrossover) Validate(ds strategy.DataSource) error {
	return strategy.ValidateIndicators(ds, m.RequiredIndicators())
}

// Signals marks golden crosses as buys and death crosses as sells, testing
// only dates where both averages exist.
func (m *MACrossover) Signals(ds strategy.DataSource) (strategy.Signals, error) {
	if err := m.Validate(ds); err != nil {
		return strategy.Signals{}, err
	}

	lower, err := ds.IndicatorData(m.lower)
	if err != nil {
		return strategy.Signals{}, err
	}
	upper, err := ds.IndicatorData(m.upper)
	if err != nil {
		return strategy.Signals{}, err
	}
	lower, upper = series.InnerJoin(lower, upper)

	return strategy.Signals{
		Buy:  strategy.CrossAbove(lower, upper),
		Sell: strategy.CrossBelow(lower, upper),
	}, nil
}
