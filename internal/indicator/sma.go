package indicator

import (
	"math"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
)

// SMA is the simple moving average of closes over a trailing window.
type SMA struct {
	period int
}

// NewSMA creates an SMA indicator.
func NewSMA(period int) (SMA, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return SMA{}, err
	}
	return SMA{period: period}, nil
}

func (s SMA) Period() int    { return s.period }
func (s SMA) Key() Key       { return Key{Kind: KindSMA, Periods: [3]int{s.period}} }
func (s SMA) String() string { return s.Key().String() }
func (s SMA) MinBars() int   { return s.period }

// Compute returns a series aligned to prices; the first period-1 values are NaN.
func (s SMA) Compute(prices core.PriceSeries) (series.Float, error) {
	if err := checkPeriod("SMA", s.period); err != nil {
		return series.Float{}, err
	}
	c, err := closes(s, prices)
	if err != nil {
		return series.Float{}, err
	}
	return series.NewFloat(c.Index, rollingMean(c.Values, s.period)), nil
}

// EMA is the exponential moving average of closes with span smoothing
// 2/(period+1), seeded from the first close.
type EMA struct {
	period int
}

// NewEMA creates an EMA indicator.
func NewEMA(period int) (EMA, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return EMA{}, err
	}
	return EMA{period: period}, nil
}

func (e EMA) Period() int    { return e.period }
func (e EMA) Key() Key       { return Key{Kind: KindEMA, Periods: [3]int{e.period}} }
func (e EMA) String() string { return e.Key().String() }
func (e EMA) MinBars() int   { return e.period }

// Compute returns a series aligned to prices.
func (e EMA) Compute(prices core.PriceSeries) (series.Float, error) {
	if err := checkPeriod("EMA", e.period); err != nil {
		return series.Float{}, err
	}
	c, err := closes(e, prices)
	if err != nil {
		return series.Float{}, err
	}
	return series.NewFloat(c.Index, ewm(c.Values, spanAlpha(e.period))), nil
}

// rollingMean returns the trailing mean over period samples. A window that
// is incomplete or contains NaN yields NaN.
func rollingMean(values []float64, period int) []float64 {
	out := make([]float64, len(values))

	var sum float64
	nans := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nans++
		} else {
			sum += v
		}

		if i >= period {
			old := values[i-period]
			if math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}

		if i < period-1 || nans > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}

	return out
}

func spanAlpha(period int) float64 {
	return 2.0 / float64(period+1)
}

// ewm applies exponential smoothing y = alpha*x + (1-alpha)*y', seeded from
// the first defined sample without bias adjustment. Undefined inputs carry
// the previous output forward.
func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))

	avg := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case math.IsNaN(avg):
			avg = v
		default:
			avg = alpha*v + (1-alpha)*avg
		}
		out[i] = avg
	}

	return out
}
