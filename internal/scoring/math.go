// Package scoring implements the numeric primitives (percentile,
// clamp-normalize, rolling statistics) and the weighted stress-score
// engine built on top of them. No third-party numerical library
// appears anywhere in the retrieval pack for this concern (see
// DESIGN.md), so this file is intentionally stdlib-only.
package scoring

import (
	"math"
	"sort"
)

// minNonNullFraction is the 80% gate used by both rolling primitives:
// a trailing window with fewer than this fraction of non-null inputs
// produces a null result rather than a statistic computed on a
// sparse, unrepresentative sample.
const minNonNullFraction = 0.8

// ClampNormalize maps v into [0, 1] linearly against [lo, hi], then
// clamps to that range. A degenerate window (hi == lo) can't produce a
// meaningful ratio, so it returns the neutral midpoint instead of
// dividing by zero.
func ClampNormalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	x := (v - lo) / (hi - lo)
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Percentile returns the p-th percentile (0..100) of sorted using
// linear interpolation between closest ranks. sorted must already be
// sorted ascending; Percentile does not sort in place to avoid
// surprising callers who still hold the slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower < 0 {
		lower = 0
	}
	if upper > n-1 {
		upper = n - 1
	}
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// SortedCopy returns an ascending-sorted copy of values, leaving the
// input untouched.
func SortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Median returns the median of a non-empty sequence. Callers must not
// pass an empty slice.
func Median(values []float64) float64 {
	sorted := SortedCopy(values)
	return Percentile(sorted, 50)
}

// PercentChange computes the N-period percent change of v against a
// reference value ref: ((v - ref) / |ref|) * 100. It returns nil when
// ref is nil, zero, or the caller has no reference within the lookback
// window (represented by passing ref as nil).
func PercentChange(v float64, ref *float64) *float64 {
	if ref == nil || *ref == 0 {
		return nil
	}
	out := ((v - *ref) / math.Abs(*ref)) * 100
	return &out
}

// logReturns computes log(closes[i]/closes[i-1]) for each adjacent
// pair, skipping (as null) any pair where either close is non-positive
// or missing.
func logReturns(closes []*float64) []*float64 {
	out := make([]*float64, len(closes))
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev == nil || cur == nil || *prev <= 0 || *cur <= 0 {
			continue
		}
		r := math.Log(*cur / *prev)
		out[i] = &r
	}
	return out
}

// RollingStdDev computes, for each position i in closes, the sample
// standard deviation (divisor N-1) of the trailing N log-returns
// ending at i. Position i is null when fewer than N prior observations
// exist, or when fewer than 80% of the N log-returns in the window are
// non-null.
func RollingStdDev(closes []*float64, window int) []*float64 {
	returns := logReturns(closes)
	out := make([]*float64, len(closes))

	for i := range closes {
		if i+1 < window {
			continue
		}
		windowReturns := returns[i-window+1 : i+1]
		vals, ok := gatedNonNull(windowReturns, window)
		if !ok {
			continue
		}
		out[i] = ptr(sampleStdDev(vals))
	}
	return out
}

// RollingMean computes, for each position i in values, the mean of the
// trailing N values ending at i, gated by the same 80%-non-null rule
// as RollingStdDev.
func RollingMean(values []*float64, window int) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if i+1 < window {
			continue
		}
		windowValues := values[i-window+1 : i+1]
		vals, ok := gatedNonNull(windowValues, window)
		if !ok {
			continue
		}
		out[i] = ptr(mean(vals))
	}
	return out
}

func gatedNonNull(window []*float64, size int) ([]float64, bool) {
	vals := make([]float64, 0, size)
	for _, v := range window {
		if v != nil {
			vals = append(vals, *v)
		}
	}
	if float64(len(vals)) < minNonNullFraction*float64(size) {
		return nil, false
	}
	return vals, true
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sumSq := 0.0
	for _, v := range vals {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}

func ptr(v float64) *float64 {
	return &v
}

// Round1 rounds v to one decimal digit, matching the score/component
// rounding rule used throughout the pipeline.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round4 rounds v to four decimal digits, used for the crypto ratio.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
