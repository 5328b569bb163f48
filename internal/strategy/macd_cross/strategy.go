package macd_cross

import (
	"fmt"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/series"
	"github.com/newthinker/strata/internal/strategy"
)

// Type is the catalog name of this strategy
const Type = "macd_cross"

// Default MACD periods.
const (
	DefaultShort  = 12
	DefaultLong   = 26
	DefaultSignal = 9
)

// MACDCross trades crossings of the MACD line over its signal line.
type MACDCross struct {
	short, long, signal int
	line                indicator.MACDLine
	signalLine          indicator.MACDSignal
}

// New creates a MACD cross strategy.
func New(short, long, signal int) (*MACDCross, error) {
	if err := CheckPeriods(short, long, signal); err != nil {
		return nil, err
	}
	line, err := indicator.NewMACDLine(short, long)
	if err != nil {
		return nil, err
	}
	sig, err := indicator.NewMACDSignal(short, long, signal)
	if err != nil {
		return nil, err
	}
	return &MACDCross{short: short, long: long, signal: signal, line: line, signalLine: sig}, nil
}

// CheckPeriods validates a short/long/signal triple.
func CheckPeriods(short, long, signal int) error {
	if short <= 0 || long <= 0 || signal <= 0 {
		return core.Errorf(core.ErrInvalidConfiguration, "All periods must be positive")
	}
	if short >= long {
		return core.Errorf(core.ErrInvalidConfiguration, "Short period must be less than long period")
	}
	return nil
}

// PeriodsFromParams reads the required short_period, long_period and
// signal_period.
func PeriodsFromParams(p strategy.Params) (short, long, signal int, err error) {
	if short, err = p.Int("short_period"); err != nil {
		return
	}
	if long, err = p.Int("long_period"); err != nil {
		return
	}
	signal, err = p.Int("signal_period")
	return
}

// PeriodFields is the catalog schema shared by MACD strategies.
func PeriodFields() []strategy.Field {
	return []strategy.Field{
		{Name: "short_period", Label: "Short Period", Kind: "number", Default: DefaultShort},
		{Name: "long_period", Label: "Long Period", Kind: "number", Default: DefaultLong},
		{Name: "signal_period", Label: "Signal Period", Kind: "number", Default: DefaultSignal},
	}
}

// FromParams builds the strategy from short_period, long_period and signal_period.
func FromParams(p strategy.Params) (strategy.Strategy, error) {
	short, long, signal, err := PeriodsFromParams(p)
	if err != nil {
		return nil, err
	}
	return New(short, long, signal)
}

// Definition describes the strategy for the catalog
func Definition() strategy.Definition {
	return strategy.Definition{
		Type:        Type,
		Label:       "MACD Cross",
		Description: "Buy when the MACD line crosses above its signal line, sell on the opposite cross",
		Fields:      PeriodFields(),
		Build:       FromParams,
	}
}

func (m *MACDCross) Name() string { return Type }

func (m *MACDCross) Description() string {
	return fmt.Sprintf("MACD(%d,%d,%d) Cross", m.short, m.long, m.signal)
}

func (m *MACDCross) RequiredIndicators() []indicator.Indicator {
	return []indicator.Indicator{m.line, m.signalLine}
}

func (m *MACDCross) Validate(ds strategy.DataSource) error {
	return strategy.ValidateIndicators(ds, m.RequiredIndicators())
}

func (m *MACDCross) Signals(ds strategy.DataSource) (strategy.Signals, error) {
	if err := m.Validate(ds); err != nil {
		return strategy.Signals{}, err
	}

	line, err := ds.IndicatorData(m.line)
	if err != nil {
		return strategy.Signals{}, err
	}
	sig, err := ds.IndicatorData(m.signalLine)
	if err != nil {
		return strategy.Signals{}, err
	}
	line, sig = series.InnerJoin(line, sig)

	return strategy.Signals{
		Buy:  strategy.CrossAbove(line, sig),
		Sell: strategy.CrossBelow(line, sig),
	}, nil
}
