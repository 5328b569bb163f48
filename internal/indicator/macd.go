package indicator

import (
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
)

// MACDLine is EMA(short) - EMA(long) of closes.
type MACDLine struct {
	short, long int
}

// NewMACDLine creates a MACD line indicator.
func NewMACDLine(short, long int) (MACDLine, error) {
	if err := checkShortLong(short, long); err != nil {
		return MACDLine{}, err
	}
	return MACDLine{short: short, long: long}, nil
}

func (m MACDLine) Key() Key {
	return Key{Kind: KindMACDLine, Periods: [3]int{m.short, m.long}}
}
func (m MACDLine) String() string { return m.Key().String() }
func (m MACDLine) MinBars() int   { return m.long }

func (m MACDLine) Compute(prices core.PriceSeries) (series.Float, error) {
	if err := checkShortLong(m.short, m.long); err != nil {
		return series.Float{}, err
	}
	c, err := closes(m, prices)
	if err != nil {
		return series.Float{}, err
	}
	return series.NewFloat(c.Index, macdLine(c.Values, m.short, m.long)), nil
}

func macdLine(closes []float64, short, long int) []float64 {
	fast := ewm(closes, spanAlpha(short))
	slow := ewm(closes, spanAlpha(long))
	for i := range fast {
		fast[i] -= slow[i]
	}
	return fast
}

// MACDSignal is EMA(signal) of the MACD line.
type MACDSignal struct {
	short, long, signal int
}

// NewMACDSignal creates a MACD signal-line indicator.
func NewMACDSignal(short, long, signal int) (MACDSignal, error) {
	if err := checkMACD(short, long, signal); err != nil {
		return MACDSignal{}, err
	}
	return MACDSignal{short: short, long: long, signal: signal}, nil
}

func (m MACDSignal) Key() Key {
	return Key{Kind: KindMACDSignal, Periods: [3]int{m.short, m.long, m.signal}}
}
func (m MACDSignal) String() string { return m.Key().String() }
func (m MACDSignal) MinBars() int   { return m.long + m.signal }

func (m MACDSignal) Compute(prices core.PriceSeries) (series.Float, error) {
	if err := checkMACD(m.short, m.long, m.signal); err != nil {
		return series.Float{}, err
	}
	c, err := closes(m, prices)
	if err != nil {
		return series.Float{}, err
	}
	line := macdLine(c.Values, m.short, m.long)
	return series.NewFloat(c.Index, ewm(line, spanAlpha(m.signal))), nil
}

// MACDHistogram is the MACD line minus its signal line.
type MACDHistogram struct {
	short, long, signal int
}

// NewMACDHistogram creates a MACD histogram indicator.
func NewMACDHistogram(short, long, signal int) (MACDHistogram, error) {
	if err := checkMACD(short, long, signal); err != nil {
		return MACDHistogram{}, err
	}
	return MACDHistogram{short: short, long: long, signal: signal}, nil
}

func (m MACDHistogram) Key() Key {
	return Key{Kind: KindMACDHistogram, Periods: [3]int{m.short, m.long, m.signal}}
}
func (m MACDHistogram) String() string { return m.Key().String() }
func (m MACDHistogram) MinBars() int   { return m.long + m.signal }

func (m MACDHistogram) Compute(prices core.PriceSeries) (series.Float, error) {
	if err := checkMACD(m.short, m.long, m.signal); err != nil {
		return series.Float{}, err
	}
	c, err := closes(m, prices)
	if err != nil {
		return series.Float{}, err
	}

	line := macdLine(c.Values, m.short, m.long)
	signal := ewm(line, spanAlpha(m.signal))
	hist := make([]float64, len(line))
	for i := range line {
		hist[i] = line[i] - signal[i]
	}
	return series.NewFloat(c.Index, hist), nil
}

func checkMACD(short, long, signal int) error {
	if err := checkShortLong(short, long); err != nil {
		return err
	}
	return checkPeriod("signal", signal)
}
