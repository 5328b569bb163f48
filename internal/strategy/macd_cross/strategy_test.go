package macd_cross

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/indicator"
	"github.com/newthinker/strata/internal/marketdata"
	"github.com/newthinker/strata/internal/strategy"
)

func waveContext(t *testing.T, n int) *marketdata.Context {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, n)
	for i := range bars {
		bars[i] = core.OHLCV{
			Close: 100 + 8*math.Sin(float64(i)/6),
			Time:  base.AddDate(0, 0, i),
		}
	}
	prices, err := core.NewPriceSeries("TEST", "1y", bars)
	require.NoError(t, err)
	return marketdata.NewContext(prices)
}

func TestMACDCross_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MACDCross)(nil)
}

func TestMACDCross_SignalsFollowLineAndSignal(t *testing.T) {
	ctx := waveContext(t, 150)
	s, err := New(12, 26, 9)
	require.NoError(t, err)

	signals, err := s.Signals(ctx)
	require.NoError(t, err)

	line, _ := indicator.NewMACDLine(12, 26)
	sig, _ := indicator.NewMACDSignal(12, 26, 9)
	l, _ := ctx.IndicatorData(line)
	g, _ := ctx.IndicatorData(sig)

	for i := 1; i < signals.Buy.Len(); i++ {
		wantBuy := l.Values[i] > g.Values[i] && l.Values[i-1] <= g.Values[i-1]
		wantSell := l.Values[i] < g.Values[i] && l.Values[i-1] >= g.Values[i-1]
		assert.Equal(t, wantBuy, signals.Buy.Values[i], "buy at %d", i)
		assert.Equal(t, wantSell, signals.Sell.Values[i], "sell at %d", i)
	}

	assert.Positive(t, signals.Buy.Count(), "an oscillating series should cross")
	assert.Positive(t, signals.Sell.Count())
}

func TestMACDCross_InvalidPeriods(t *testing.T) {
	_, err := New(26, 12, 9)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "Short period must be less than long period")

	_, err = New(12, 26, 0)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestMACDCross_NotEnoughData(t *testing.T) {
	s, _ := New(12, 26, 9)
	_, err := s.Signals(waveContext(t, 30))
	assert.ErrorIs(t, err, core.ErrDataValidation)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestFromParams(t *testing.T) {
	_, err := FromParams(strategy.Params{})
	assert.ErrorIs(t, err, core.ErrMissingParameter)

	_, err = FromParams(strategy.Params{"short_period": 12, "long_period": 26})
	assert.ErrorIs(t, err, core.ErrMissingParameter)
	assert.Contains(t, err.Error(), "must include 'signal_period'")

	s, err := FromParams(strategy.Params{"short_period": "5", "long_period": "35", "signal_period": "5"})
	require.NoError(t, err)
	assert.Equal(t, "MACD(5,35,5) Cross", s.Description())

	_, err = FromParams(strategy.Params{"short_period": "x"})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}
