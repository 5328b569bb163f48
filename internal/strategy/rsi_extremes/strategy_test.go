package rsi_extremes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/marketdata"
	"github.com/newthinker/strata/internal/strategy"
)

func newContext(t *testing.T, closes ...float64) *marketdata.Context {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{Close: c, Time: base.AddDate(0, 0, i)}
	}
	prices, err := core.NewPriceSeries("TEST", "1y", bars)
	require.NoError(t, err)
	return marketdata.NewContext(prices)
}

func TestRSIExtremes_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*RSIExtremes)(nil)
}

func TestRSIExtremes_LevelSignals(t *testing.T) {
	// RSI(2) over these closes is [NaN NaN 50 83.3 50]
	s, err := New(2, 55, 80)
	require.NoError(t, err)

	signals, err := s.Signals(newContext(t, 10, 11, 10, 12, 11))
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false, true, false, true}, signals.Buy.Values)
	assert.Equal(t, []bool{false, false, false, true, false}, signals.Sell.Values)
}

func TestRSIExtremes_InvalidThresholds(t *testing.T) {
	_, err := New(14, 70, 30)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = New(-1, 30, 70)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestFromParams_Defaults(t *testing.T) {
	s, err := FromParams(strategy.Params{"rsi_period": 14})
	require.NoError(t, err)
	assert.Equal(t, "RSI(14) Extremes 30/70", s.Description())

	_, err = FromParams(strategy.Params{})
	assert.ErrorIs(t, err, core.ErrMissingParameter)
}
