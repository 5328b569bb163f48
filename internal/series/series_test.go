package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func days(offsets ...int) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, o := range offsets {
		out[i] = base.AddDate(0, 0, o)
	}
	return out
}

func TestNewFloat_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { NewFloat(days(0, 1), []float64{1}) })
}

func TestInnerJoin(t *testing.T) {
	a := NewFloat(days(0, 1, 2, 4), []float64{1, 2, 3, 4})
	b := NewFloat(days(1, 2, 3, 4, 5), []float64{10, math.NaN(), 30, 40, 50})

	ja, jb := InnerJoin(a, b)

	require.Equal(t, days(1, 2, 4), ja.Index)
	assert.Equal(t, ja.Index, jb.Index)
	assert.Equal(t, []float64{2, 3, 4}, ja.Values)
	assert.Equal(t, 10.0, jb.Values[0])
	assert.True(t, math.IsNaN(jb.Values[1]), "undefined values survive the join")
	assert.Equal(t, 40.0, jb.Values[2])
}

func TestInnerJoin_Disjoint(t *testing.T) {
	a := NewFloat(days(0, 1), []float64{1, 2})
	b := NewFloat(days(2, 3), []float64{1, 2})

	ja, jb := InnerJoin(a, b)
	assert.Equal(t, 0, ja.Len())
	assert.Equal(t, 0, jb.Len())
}

func TestFloat_FirstDefinedAndLast(t *testing.T) {
	s := NewFloat(days(0, 1, 2), []float64{math.NaN(), 5, 6})
	assert.Equal(t, 1, s.FirstDefined())
	assert.Equal(t, 6.0, s.Last())
	assert.False(t, s.Defined(0))

	empty := Float{}
	assert.Equal(t, -1, empty.FirstDefined())
	assert.True(t, math.IsNaN(empty.Last()))
}

func TestBool_Reindex(t *testing.T) {
	s := NewBool(days(1, 3), []bool{true, true})

	r := s.Reindex(days(0, 1, 2, 3, 4))
	assert.Equal(t, []bool{false, true, false, true, false}, r.Values)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, days(1, 3), r.TrueAt())
}

func TestUnion(t *testing.T) {
	got := Union(days(3, 1), days(2, 1), nil)
	assert.Equal(t, days(1, 2, 3), got)
}
