package backtest

import (
	"math"
	"sort"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/series"
	"github.com/newthinker/strata/internal/strategy"
)

type position int

const (
	flat position = iota
	long
)

// Simulate walks the close series with a Flat/Long state machine. A buy
// while flat enters at the close, a sell while long exits at the close;
// every other signal is ignored. Signals are reindexed to the close index
// with missing dates treated as false, and bars without a close price
// never trigger a transition. A position still open at the end is returned
// separately and produces no trade.
func Simulate(signals strategy.Signals, prices core.PriceSeries) ([]Trade, *OpenPosition, error) {
	closes, err := prices.Closes()
	if err != nil {
		return nil, nil, err
	}
	buy := signals.Buy.Reindex(closes.Index)
	sell := signals.Sell.Reindex(closes.Index)

	var (
		trades []Trade
		state  = flat
		entry  int
	)
	for i, price := range closes.Values {
		if math.IsNaN(price) {
			continue
		}
		switch state {
		case flat:
			if buy.Values[i] {
				entry = i
				state = long
			}
		case long:
			if sell.Values[i] {
				trades = append(trades, newTrade(closes, entry, i))
				state = flat
			}
		}
	}

	var open *OpenPosition
	if state == long {
		last := lastDefined(closes)
		open = &OpenPosition{
			EntryDate:        closes.Index[entry],
			EntryPrice:       closes.Values[entry],
			LastDate:         closes.Index[last],
			LastPrice:        closes.Values[last],
			UnrealizedReturn: (closes.Values[last] - closes.Values[entry]) / closes.Values[entry],
		}
	}
	return trades, open, nil
}

func newTrade(closes series.Float, entry, exit int) Trade {
	entryPrice, exitPrice := closes.Values[entry], closes.Values[exit]
	return Trade{
		EntryDate:    closes.Index[entry],
		ExitDate:     closes.Index[exit],
		EntryPrice:   entryPrice,
		ExitPrice:    exitPrice,
		Return:       (exitPrice - entryPrice) / entryPrice,
		DurationDays: int(closes.Index[exit].Sub(closes.Index[entry]).Hours() / 24),
	}
}

func lastDefined(s series.Float) int {
	for i := s.Len() - 1; i >= 0; i-- {
		if s.Defined(i) {
			return i
		}
	}
	return 0
}

// SignalEvents flattens a signal pair into date-ordered markers.
func SignalEvents(signals strategy.Signals) []SignalEvent {
	var events []SignalEvent
	for _, t := range signals.Buy.TrueAt() {
		events = append(events, SignalEvent{Date: t, Action: "buy"})
	}
	for _, t := range signals.Sell.TrueAt() {
		events = append(events, SignalEvent{Date: t, Action: "sell"})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events
}
