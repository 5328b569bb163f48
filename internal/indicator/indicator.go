// Package indicator computes technical indicators over a price series and
// memoizes them per series.
package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
)

// Kind identifies an indicator family.
type Kind uint8

const (
	KindSMA Kind = iota + 1
	KindEMA
	KindRSI
	KindMACDLine
	KindMACDSignal
	KindMACDHistogram
)

func (k Kind) String() string {
	switch k {
	case KindSMA:
		return "SMA"
	case KindEMA:
		return "EMA"
	case KindRSI:
		return "RSI"
	case KindMACDLine:
		return "MACD_Line"
	case KindMACDSignal:
		return "MACD_Signal"
	case KindMACDHistogram:
		return "MACD_Histogram"
	default:
		return "Unknown"
	}
}

// Key is the value identity of an indicator: its kind plus parameters.
// Unused period slots are zero.
type Key struct {
	Kind    Kind
	Periods [3]int
}

// String renders the canonical form, e.g. "RSI_14" or "MACD_Signal_12_26_9".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Kind.String())
	for _, p := range k.Periods {
		if p == 0 {
			break
		}
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// Indicator maps a price series to a derived series of the same length.
type Indicator interface {
	Key() Key
	String() string
	// MinBars is the smallest series length Compute accepts.
	MinBars() int
	Compute(prices core.PriceSeries) (series.Float, error)
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return core.Errorf(core.ErrInvalidConfiguration, "%s period must be positive, got %d", name, period)
	}
	return nil
}

func checkShortLong(short, long int) error {
	if err := checkPeriod("short", short); err != nil {
		return err
	}
	if err := checkPeriod("long", long); err != nil {
		return err
	}
	if short >= long {
		return core.Errorf(core.ErrInvalidConfiguration,
			"short period must be less than long period, got %d >= %d", short, long)
	}
	return nil
}

// closes fetches the close column and enforces the indicator's minimum length.
func closes(ind Indicator, prices core.PriceSeries) (series.Float, error) {
	c, err := prices.Closes()
	if err != nil {
		return series.Float{}, fmt.Errorf("%s: %w", ind, err)
	}
	if prices.Len() < ind.MinBars() {
		return series.Float{}, core.Errorf(core.ErrInsufficientData,
			"%s: need at least %d bars, got %d", ind, ind.MinBars(), prices.Len())
	}
	return c, nil
}
