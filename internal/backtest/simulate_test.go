package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
	"github.com/newthinker/strata/internal/strategy"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func dailyPrices(t *testing.T, closes ...float64) core.PriceSeries {
	t.Helper()
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{Symbol: "TEST", Open: c, High: c, Low: c, Close: c, Time: day0.AddDate(0, 0, i)}
	}
	ps, err := core.NewPriceSeries("TEST", "1mo", bars)
	require.NoError(t, err)
	return ps
}

func signalsAt(prices core.PriceSeries, buys, sells []int) strategy.Signals {
	n := prices.Len()
	b, s := make([]bool, n), make([]bool, n)
	for _, i := range buys {
		b[i] = true
	}
	for _, i := range sells {
		s[i] = true
	}
	return strategy.Signals{
		Buy:  series.NewBool(prices.Index(), b),
		Sell: series.NewBool(prices.Index(), s),
	}
}

func TestSimulate_OneTrade(t *testing.T) {
	prices := dailyPrices(t, 100, 105, 110)

	trades, open, err := Simulate(signalsAt(prices, []int{0}, []int{2}), prices)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Nil(t, open)

	tr := trades[0]
	assert.Equal(t, day0, tr.EntryDate)
	assert.Equal(t, day0.AddDate(0, 0, 2), tr.ExitDate)
	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.Equal(t, 110.0, tr.ExitPrice)
	assert.InDelta(t, 0.10, tr.Return, 1e-12)
	assert.Equal(t, 2, tr.DurationDays)
}

func TestSimulate_IgnoresRedundantSignals(t *testing.T) {
	prices := dailyPrices(t, 10, 11, 12, 13, 14, 15, 16)

	// sell while flat, second buy while long, second sell while flat
	trades, _, err := Simulate(signalsAt(prices, []int{1, 2, 5}, []int{0, 3, 4, 6}), prices)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, 11.0, trades[0].EntryPrice)
	assert.Equal(t, 13.0, trades[0].ExitPrice)
	assert.Equal(t, 15.0, trades[1].EntryPrice)
	assert.Equal(t, 16.0, trades[1].ExitPrice)
	assert.True(t, trades[0].ExitDate.Before(trades[1].EntryDate))
}

func TestSimulate_OpenPositionIsReportedNotTraded(t *testing.T) {
	prices := dailyPrices(t, 50, 40, 60)

	trades, open, err := Simulate(signalsAt(prices, []int{1}, nil), prices)
	require.NoError(t, err)
	assert.Empty(t, trades)
	require.NotNil(t, open)
	assert.Equal(t, 40.0, open.EntryPrice)
	assert.Equal(t, 60.0, open.LastPrice)
	assert.InDelta(t, 0.5, open.UnrealizedReturn, 1e-12)
}

func TestSimulate_SameBarBuyAndSell(t *testing.T) {
	prices := dailyPrices(t, 10, 20, 30)

	// buy and sell both fire on bar 0: enter, the sell on the same bar is not seen
	trades, _, err := Simulate(signalsAt(prices, []int{0}, []int{0, 2}), prices)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 10.0, trades[0].EntryPrice)
	assert.Equal(t, 30.0, trades[0].ExitPrice)
}

func TestSimulate_ReindexesSignals(t *testing.T) {
	prices := dailyPrices(t, 10, 20, 30, 40)
	idx := prices.Index()

	// signals only cover the tail, as after an indicator warm-up
	sig := strategy.Signals{
		Buy:  series.NewBool(idx[1:], []bool{true, false, false}),
		Sell: series.NewBool(idx[1:], []bool{false, false, true}),
	}

	trades, _, err := Simulate(sig, prices)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 1.0, trades[0].Return, 1e-12)
}

func TestSimulate_SkipsBarsWithoutClose(t *testing.T) {
	prices := dailyPrices(t, 10, math.NaN(), 30)

	trades, open, err := Simulate(signalsAt(prices, []int{1}, []int{2}), prices)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Nil(t, open)
}

func TestSignalEvents_Ordered(t *testing.T) {
	prices := dailyPrices(t, 1, 2, 3, 4)

	events := SignalEvents(signalsAt(prices, []int{0, 2}, []int{1}))
	require.Len(t, events, 3)
	assert.Equal(t, "buy", events[0].Action)
	assert.Equal(t, "sell", events[1].Action)
	assert.Equal(t, "buy", events[2].Action)
}
