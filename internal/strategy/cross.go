package strategy

import "github.com/newthinker/strata/internal/series"

// CrossAbove marks bars where a moves from at or below b to strictly above.
// a and b must share an index. Comparisons involving NaN are false.
func CrossAbove(a, b series.Float) series.Bool {
	out := make([]bool, a.Len())
	for i := 1; i < len(out); i++ {
		out[i] = a.Values[i] > b.Values[i] && a.Values[i-1] <= b.Values[i-1]
	}
	return series.NewBool(a.Index, out)
}

// CrossBelow marks bars where a moves from at or above b to strictly below.
func CrossBelow(a, b series.Float) series.Bool {
	out := make([]bool, a.Len())
	for i := 1; i < len(out); i++ {
		out[i] = a.Values[i] < b.Values[i] && a.Values[i-1] >= b.Values[i-1]
	}
	return series.NewBool(a.Index, out)
}

// CrossAboveLevel marks upward crossings of a constant level.
func CrossAboveLevel(s series.Float, level float64) series.Bool {
	return CrossAbove(s, constant(s, level))
}

// CrossBelowLevel marks downward crossings of a constant level.
func CrossBelowLevel(s series.Float, level float64) series.Bool {
	return CrossBelow(s, constant(s, level))
}

// Below marks every bar strictly below level.
func Below(s series.Float, level float64) series.Bool {
	out := make([]bool, s.Len())
	for i, v := range s.Values {
		out[i] = v < level
	}
	return series.NewBool(s.Index, out)
}

// Above marks every bar strictly above level.
func Above(s series.Float, level float64) series.Bool {
	out := make([]bool, s.Len())
	for i, v := range s.Values {
		out[i] = v > level
	}
	return series.NewBool(s.Index, out)
}

func constant(like series.Float, v float64) series.Float {
	values := make([]float64, like.Len())
	for i := range values {
		values[i] = v
	}
	return series.NewFloat(like.Index, values)
}
