package indicator

import (
	"math"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
)

// RSI is the Relative Strength Index with Wilder smoothing (alpha = 1/period).
type RSI struct {
	period int
}

// NewRSI creates an RSI indicator.
func NewRSI(period int) (RSI, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return RSI{}, err
	}
	return RSI{period: period}, nil
}

func (r RSI) Period() int    { return r.period }
func (r RSI) Key() Key       { return Key{Kind: KindRSI, Periods: [3]int{r.period}} }
func (r RSI) String() string { return r.Key().String() }
func (r RSI) MinBars() int   { return r.period + 1 }

// Compute returns values in [0, 100]. The first period values are NaN, as is
// every bar whose average loss is zero.
func (r RSI) Compute(prices core.PriceSeries) (series.Float, error) {
	if err := checkPeriod("RSI", r.period); err != nil {
		return series.Float{}, err
	}
	c, err := closes(r, prices)
	if err != nil {
		return series.Float{}, err
	}

	n := len(c.Values)
	gains := make([]float64, n)
	losses := make([]float64, n)
	gains[0], losses[0] = math.NaN(), math.NaN()
	for i := 1; i < n; i++ {
		diff := c.Values[i] - c.Values[i-1]
		switch {
		case math.IsNaN(diff):
			gains[i], losses[i] = math.NaN(), math.NaN()
		case diff > 0:
			gains[i] = diff
		default:
			losses[i] = -diff
		}
	}

	alpha := 1.0 / float64(r.period)
	avgGain := ewm(gains, alpha)
	avgLoss := ewm(losses, alpha)

	out := make([]float64, n)
	for i := range out {
		if i < r.period || !(avgLoss[i] > 0) || math.IsNaN(avgGain[i]) {
			out[i] = math.NaN()
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}

	return series.NewFloat(c.Index, out), nil
}
