package ma_crossover

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/marketdata"
	"github.com/newthinker/strata/internal/strategy"
)

func newContext(t *testing.T, closes ...float64) *marketdata.Context {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{Symbol: "TEST", Close: c, Time: base.AddDate(0, 0, i)}
	}
	prices, err := core.NewPriceSeries("TEST", "1y", bars)
	if err != nil {
		t.Fatal(err)
	}
	return marketdata.NewContext(prices)
}

func TestMACrossover_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MACrossover)(nil)
}

func TestMACrossover_Name(t *testing.T) {
	s, _ := New(5, 10, "SMA")
	if s.Name() != "moving_average_cross" {
		t.Errorf("expected 'moving_average_cross', got '%s'", s.Name())
	}
	if s.Description() != "SMA Crossover (5/10)" {
		t.Errorf("unexpected description %q", s.Description())
	}
}

func TestMACrossover_GoldenCross(t *testing.T) {
	s, _ := New(2, 4, "SMA")

	// Declining then sharp recovery at the very end:
	// prevFast = (85 + 80) / 2 = 82.5,  prevSlow = (95 + 90 + 85 + 80) / 4 = 87.5
	// currFast = (80 + 120) / 2 = 100,  currSlow = (90 + 85 + 80 + 120) / 4 = 93.75
	ctx := newContext(t, 100, 95, 90, 85, 80, 120)

	signals, err := s.Signals(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signals.Buy.Count() != 1 {
		t.Fatalf("expected exactly one buy, got %d", signals.Buy.Count())
	}
	if !signals.Buy.Values[signals.Buy.Len()-1] {
		t.Error("expected buy on the last bar")
	}
	if signals.Sell.Count() != 0 {
		t.Errorf("expected no sells, got %d", signals.Sell.Count())
	}
}

func TestMACrossover_DeathCross(t *testing.T) {
	s, _ := New(2, 4, "SMA")
	ctx := newContext(t, 80, 85, 90, 95, 100, 60)

	signals, err := s.Signals(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signals.Sell.Count() != 1 || !signals.Sell.Values[signals.Sell.Len()-1] {
		t.Errorf("expected a single sell on the last bar, got %v", signals.Sell.Values)
	}
}

func TestMACrossover_SignalsAlignToJoinedIndex(t *testing.T) {
	s, _ := New(2, 4, "SMA")
	ctx := newContext(t, 100, 95, 90, 85, 80, 120)

	signals, _ := s.Signals(ctx)
	if signals.Buy.Len() != 6 {
		t.Errorf("expected 6 aligned values, got %d", signals.Buy.Len())
	}
}

func TestMACrossover_InvertedPeriods(t *testing.T) {
	_, err := New(20, 10, "SMA")
	if !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("expected INVALID_CONFIGURATION, got %v", err)
	}

	_, err = New(10, 10, "SMA")
	if !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("equal periods: expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestMACrossover_InvalidType(t *testing.T) {
	_, err := New(5, 10, "WMA")
	if !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestMACrossover_NotEnoughData(t *testing.T) {
	s, _ := New(50, 200, "EMA")
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	_, err := s.Signals(newContext(t, closes...))
	if !errors.Is(err, core.ErrDataValidation) {
		t.Errorf("expected DATA_VALIDATION, got %v", err)
	}
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("expected cause INSUFFICIENT_DATA, got %v", err)
	}
}

func TestFromParams(t *testing.T) {
	s, err := FromParams(strategy.Params{"lower_period": "5", "upper_period": 20, "ma_type": "ema"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Description() != "EMA Crossover (5/20)" {
		t.Errorf("unexpected description %q", s.Description())
	}

	for _, missing := range []string{"lower_period", "upper_period", "ma_type"} {
		p := strategy.Params{"lower_period": 5, "upper_period": 20, "ma_type": "SMA"}
		delete(p, missing)
		if _, err := FromParams(p); !errors.Is(err, core.ErrMissingParameter) {
			t.Errorf("without %s: expected MISSING_PARAMETER, got %v", missing, err)
		}
	}
}
