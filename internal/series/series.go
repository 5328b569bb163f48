// Package series holds time-indexed numeric and boolean sequences and the
// alignment operations the backtest pipeline needs.
package series

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Float is a time-indexed sequence of float64. NaN marks an undefined value.
type Float struct {
	Index  []time.Time
	Values []float64
}

// NewFloat pairs an index with values. It panics on length mismatch.
func NewFloat(index []time.Time, values []float64) Float {
	if len(index) != len(values) {
		panic(fmt.Sprintf("series: index length %d != values length %d", len(index), len(values)))
	}
	return Float{Index: index, Values: values}
}

// Len returns the number of samples.
func (s Float) Len() int { return len(s.Values) }

// Defined reports whether sample i holds a value.
func (s Float) Defined(i int) bool { return !math.IsNaN(s.Values[i]) }

// FirstDefined returns the position of the first defined sample, or -1.
func (s Float) FirstDefined() int {
	for i, v := range s.Values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// Last returns the last sample, NaN if the series is empty.
func (s Float) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// InnerJoin keeps only the timestamps present in both series. Both inputs
// must be in ascending time order. Undefined values are kept.
func InnerJoin(a, b Float) (Float, Float) {
	var idx []time.Time
	var av, bv []float64

	i, j := 0, 0
	for i < len(a.Index) && j < len(b.Index) {
		switch {
		case a.Index[i].Equal(b.Index[j]):
			idx = append(idx, a.Index[i])
			av = append(av, a.Values[i])
			bv = append(bv, b.Values[j])
			i++
			j++
		case a.Index[i].Before(b.Index[j]):
			i++
		default:
			j++
		}
	}

	return Float{Index: idx, Values: av}, Float{Index: idx, Values: bv}
}

// Bool is a time-indexed sequence of booleans.
type Bool struct {
	Index  []time.Time
	Values []bool
}

// NewBool pairs an index with values. It panics on length mismatch.
func NewBool(index []time.Time, values []bool) Bool {
	if len(index) != len(values) {
		panic(fmt.Sprintf("series: index length %d != values length %d", len(index), len(values)))
	}
	return Bool{Index: index, Values: values}
}

// Len returns the number of samples.
func (s Bool) Len() int { return len(s.Values) }

// Count returns the number of true samples.
func (s Bool) Count() int {
	n := 0
	for _, v := range s.Values {
		if v {
			n++
		}
	}
	return n
}

// TrueAt returns the timestamps of the true samples.
func (s Bool) TrueAt() []time.Time {
	var out []time.Time
	for i, v := range s.Values {
		if v {
			out = append(out, s.Index[i])
		}
	}
	return out
}

// Reindex conforms the series to index. Timestamps absent from s are false.
func (s Bool) Reindex(index []time.Time) Bool {
	lookup := make(map[int64]bool, len(s.Index))
	for i, t := range s.Index {
		lookup[t.UnixNano()] = s.Values[i]
	}

	values := make([]bool, len(index))
	for i, t := range index {
		values[i] = lookup[t.UnixNano()]
	}
	return Bool{Index: index, Values: values}
}

// Union returns the sorted, de-duplicated union of the given indices.
func Union(indices ...[]time.Time) []time.Time {
	seen := make(map[int64]time.Time)
	for _, idx := range indices {
		for _, t := range idx {
			if _, ok := seen[t.UnixNano()]; !ok {
				seen[t.UnixNano()] = t
			}
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
