package backtest

import (
	"math"
)

// tradingDays annualizes the per-trade Sharpe ratio.
const tradingDays = 252

// CalculateMetrics computes performance statistics from closed trades.
// With no trades every ratio is zero and capital is unchanged.
func CalculateMetrics(trades []Trade, initialCapital float64) Metrics {
	m := Metrics{
		TotalTrades:    len(trades),
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
	}
	if len(trades) == 0 {
		return m
	}

	returns := make([]float64, len(trades))
	var sum, winSum, lossSum float64
	for i, t := range trades {
		returns[i] = t.Return
		sum += t.Return
		switch {
		case t.IsWin():
			m.WinningTrades++
			winSum += t.Return
		case t.IsLoss():
			m.LosingTrades++
			lossSum += t.Return
		}
	}

	m.TotalReturn = compoundReturn(returns)
	m.WinRate = float64(m.WinningTrades) / float64(len(trades))
	m.AvgReturnPerTrade = sum / float64(len(trades))
	if m.WinningTrades > 0 {
		m.AvgWinningTrade = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLosingTrade = lossSum / float64(m.LosingTrades)
	}
	m.MaxDrawdown = calculateMaxDrawdown(returns)
	m.SharpeRatio = calculateSharpeRatio(returns)
	m.FinalCapital = initialCapital * (1 + m.TotalReturn)
	return m
}

func compoundReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// calculateMaxDrawdown returns the deepest decline of the compounded equity
// curve from its running peak, as a non-positive fraction.
func calculateMaxDrawdown(returns []float64) float64 {
	var maxDD float64
	peak := math.Inf(-1)
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (cumulative - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// calculateSharpeRatio is mean/stddev of per-trade returns scaled by
// sqrt(252), with sample standard deviation. Zero when undefined.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	// Welford
	var mean, m2 float64
	for i, r := range returns {
		delta := r - mean
		mean += delta / float64(i+1)
		m2 += delta * (r - mean)
	}
	stdDev := math.Sqrt(m2 / float64(len(returns)-1))
	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}

	return mean / stdDev * math.Sqrt(tradingDays)
}
