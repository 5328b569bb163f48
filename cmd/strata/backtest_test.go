package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/strata/internal/backtest"
	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/strategy"
	"github.com/newthinker/strata/internal/strategy/factory"
)

func resetBacktestFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		backtestPeriod, backtestMode, backtestFile = "", "", ""
		backtestCapital = 0
		backtestStrategies = nil
	})
}

func TestParseStrategyFlag(t *testing.T) {
	cfg, err := parseStrategyFlag("moving_average_cross:lower_period=5, upper_period=20,ma_type=EMA")
	require.NoError(t, err)
	assert.Equal(t, "moving_average_cross", cfg.Type)
	assert.Equal(t, map[string]any{
		"lower_period": "5",
		"upper_period": "20",
		"ma_type":      "EMA",
	}, cfg.Params)

	s, err := factory.Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, "EMA Crossover (5/20)", s.Description())
}

func TestParseStrategyFlag_NoParams(t *testing.T) {
	cfg, err := parseStrategyFlag("rsi_cross")
	require.NoError(t, err)
	assert.Equal(t, "rsi_cross", cfg.Type)
	assert.Empty(t, cfg.Params)
}

func TestParseStrategyFlag_Invalid(t *testing.T) {
	for _, in := range []string{"", ":a=1", "rsi_cross:rsi_period", "rsi_cross:=14"} {
		_, err := parseStrategyFlag(in)
		assert.Truef(t, errors.Is(err, core.ErrInvalidConfiguration), "input %q: %v", in, err)
	}
}

func TestBuildRequest_Flags(t *testing.T) {
	resetBacktestFlags(t)
	backtestPeriod = "6mo"
	backtestCapital = 2500
	backtestMode = "all"
	backtestStrategies = []string{"rsi_cross:rsi_period=14,lower_bound=30,upper_bound=70"}

	req, err := buildRequest([]string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", req.Ticker)
	assert.Equal(t, "6mo", req.Period)
	assert.Equal(t, backtest.Amount(2500), req.InitialCapital)
	assert.Equal(t, "all", req.Mode)
	require.Len(t, req.Strategies, 1)
	assert.Equal(t, "rsi_cross", req.Strategies[0].Type)
}

func TestBuildRequest_File(t *testing.T) {
	resetBacktestFlags(t)
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ticker: MSFT
period: 1y
initial_capital: 5000
strategies:
  - type: macd_cross
    params:
      short_period: 12
      long_period: 26
      signal_period: 9
`), 0o644))
	backtestFile = path
	backtestPeriod = "2y"

	req, err := buildRequest(nil)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", req.Ticker)
	assert.Equal(t, "2y", req.Period, "flags override the file")
	assert.Equal(t, backtest.Amount(5000), req.InitialCapital)
	require.Len(t, req.Strategies, 1)
	assert.Equal(t, "macd_cross", req.Strategies[0].Type)
}

func TestBuildRequest_Missing(t *testing.T) {
	resetBacktestFlags(t)

	_, err := buildRequest(nil)
	assert.True(t, errors.Is(err, core.ErrMissingParameter))

	_, err = buildRequest([]string{"AAPL"})
	assert.True(t, errors.Is(err, core.ErrNoStrategies))
}

func TestPrintResult(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := &backtest.Result{
		Ticker:    "AAPL",
		Period:    "1y",
		Strategy:  "SMA Crossover (5/20)",
		StartDate: day,
		EndDate:   day.AddDate(0, 0, 30),
		Bars:      21,
		Trades: []backtest.Trade{{
			EntryDate: day.AddDate(0, 0, 3), ExitDate: day.AddDate(0, 0, 10),
			EntryPrice: 100, ExitPrice: 110, Return: 0.1, DurationDays: 7,
		}},
		Metrics: backtest.CalculateMetrics([]backtest.Trade{{Return: 0.1}}, 10000),
		OpenPosition: &backtest.OpenPosition{
			EntryDate: day.AddDate(0, 0, 20), EntryPrice: 105, UnrealizedReturn: 0.02,
		},
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "SMA Crossover (5/20)")
	assert.Contains(t, out, "10.00%")
	assert.Contains(t, out, "2024-01-05")
	assert.Contains(t, out, "+10.00%")
	assert.Contains(t, out, "Open position since 2024-01-22")
}

func TestPrintComparison(t *testing.T) {
	results := []*backtest.Result{
		{Strategy: "first", Metrics: backtest.Metrics{TotalReturn: 0.2}},
		{Strategy: "second", Metrics: backtest.Metrics{TotalReturn: -0.05}},
	}
	var buf bytes.Buffer
	printComparison(&buf, results)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1"))
	assert.Contains(t, lines[1], "first")
	assert.Contains(t, lines[2], "-5.00%")
}

func TestPrintCatalog(t *testing.T) {
	defs := factory.Catalog()

	var table bytes.Buffer
	require.NoError(t, printCatalog(&table, defs, "table"))
	assert.Contains(t, table.String(), "moving_average_cross")
	assert.Contains(t, table.String(), "lower_period=50")

	var js bytes.Buffer
	require.NoError(t, printCatalog(&js, defs, "json"))
	var decoded []strategy.Definition
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Len(t, decoded, len(defs))

	var y bytes.Buffer
	require.NoError(t, printCatalog(&y, defs, "yaml"))
	assert.Contains(t, y.String(), "type: rsi_cross")

	assert.Error(t, printCatalog(&bytes.Buffer{}, defs, "xml"))
}
