package table

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Present returns the non-null values of a numeric column.
func (c *Column) Present() []float64 {
	out := make([]float64, 0, len(c.Num))
	for _, v := range c.Num {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Median returns the median of the non-null values of a numeric column, or
// NaN when there are none. Even-sized inputs average the two middle values.
func (c *Column) Median() float64 {
	m, err := stats.Median(c.Present())
	if err != nil {
		return math.NaN()
	}
	return m
}

// Mode returns the most frequent non-null text value. Ties resolve to the
// lexicographically smallest value. ok is false when every value is null.
func (c *Column) Mode() (mode string, ok bool) {
	counts := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		counts[c.String(i)]++
	}
	best := -1
	for v, n := range counts {
		if n > best || (n == best && v < mode) {
			mode, best = v, n
		}
	}
	return mode, best > 0
}

// EmpiricalQuantile returns the p-quantile of the non-null values using the
// empirical CDF: the smallest observed value whose cumulative share reaches p.
// The result is always an observed value, which makes clipping to it stable
// under repetition. It returns NaN when there are no values.
func (c *Column) EmpiricalQuantile(p float64) float64 {
	x := c.Present()
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)
	return stat.Quantile(p, stat.Empirical, x, nil)
}

// FillNull replaces numeric nulls with v and returns how many were filled.
func (c *Column) FillNull(v float64) int {
	n := 0
	for i, x := range c.Num {
		if math.IsNaN(x) {
			c.Num[i] = v
			n++
		}
	}
	return n
}

// FillNullText replaces text nulls with s and returns how many were filled.
func (c *Column) FillNullText(s string) int {
	n := 0
	for i, null := range c.Null {
		if null {
			c.Str[i] = s
			c.Null[i] = false
			n++
		}
	}
	return n
}

// Clip bounds the non-null numeric values to [lo, hi] and returns how many
// values changed.
func (c *Column) Clip(lo, hi float64) int {
	n := 0
	for i, v := range c.Num {
		switch {
		case math.IsNaN(v):
		case v < lo:
			c.Num[i] = lo
			n++
		case v > hi:
			c.Num[i] = hi
			n++
		}
	}
	return n
}
