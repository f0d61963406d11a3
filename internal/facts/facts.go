// Package facts provides the pure numeric functions the metrics layer is
// built on. Every function is deterministic, tolerates empty input, never
// panics for finite arguments, and rounds its result to 2 decimal places.
package facts

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// Ratio returns a/b rounded to 2 decimal places. A zero denominator yields
// 0 rather than an error or infinity
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return round2(a / b)
}

// GrowthRate returns the relative change from previous to current. A zero
// previous value yields 1 when current is positive and 0 otherwise
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 1
		}
		return 0
	}
	return round2((current - previous) / previous)
}

// Mean returns the arithmetic mean rounded to 2 decimals, 0 for empty input
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return round2(m)
}

// Median returns the middle value rounded to 2 decimals, 0 for empty input
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return round2(m)
}

// Sum returns the total of values rounded to 2 decimals, 0 for empty input
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s, err := stats.Sum(values)
	if err != nil {
		return 0
	}
	return round2(s)
}

// Variance returns the population variance rounded to 2 decimals, 0 for
// empty input
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	v, err := stats.PopulationVariance(values)
	if err != nil {
		return 0
	}
	return round2(v)
}

// StdDev returns the population standard deviation rounded to 2 decimals,
// 0 for empty input
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0
	}
	return round2(s)
}

// Percentile returns the p-th percentile of values using linear
// interpolation over the ascending sort: the fractional index is
// p/100 * (n-1), and non-integral indexes interpolate between the two
// bracketing elements. Returns 0 for empty input
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := p / 100 * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower < 0 {
		return round2(sorted[0])
	}
	if lower == upper || upper >= n {
		return round2(sorted[lower])
	}
	frac := idx - float64(lower)
	return round2(sorted[lower]*(1-frac) + sorted[upper]*frac)
}

// Gini returns the Gini coefficient of values using the standard discrete
// formula over the ascending sort. Returns 0 for empty input or when the
// mean is 0
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	g := (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
	if g < 0 {
		g = 0
	}
	return round2(g)
}

// DaysBetween returns the number of whole days between a and b, ignoring
// which comes first
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// BusinessDaysBetween counts the calendar days from a to b that fall on a
// weekday, inclusive of both endpoints. It walks day by day
func BusinessDaysBetween(a, b time.Time) int {
	if b.Before(a) {
		a, b = b, a
	}
	b = b.In(a.Location())

	day := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, a.Location())
	end := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, a.Location())

	count := 0
	for !day.After(end) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

func round2(v float64) float64 {
	r, err := stats.Round(v, 2)
	if err != nil {
		return 0
	}
	return r
}
