// Package analytics implements the shared aggregation and metric-derivation
// pipeline behind every dashboard question: outlier trimming, bucketing,
// grouped aggregation, percentile normalization, k-means segmentation and
// correlation. Every stage is a pure function from an input table to a new
// table or report; nothing is mutated in place.
package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile returns the q-th sample quantile of values (q in [0,1]) using
// linear interpolation between order statistics at rank q*(n-1), matching
// the convention the dashboard's summary statistics were calibrated against.
// Returns NaN for an empty input.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	w := rank - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Mean returns the arithmetic mean, NaN for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// popStdDev returns the population standard deviation (divisor n, not n-1);
// standardization for clustering uses population statistics.
func popStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// pearson is Pearson's linear correlation coefficient.
func pearson(x, y []float64) float64 {
	return stat.Correlation(x, y, nil)
}

// Histogram counts values into equal-width bins over [lo, hi] and returns the
// bin midpoints alongside the counts. Values outside the range are ignored;
// the last bin is closed on the right.
func Histogram(values []float64, lo, hi float64, bins int) (mids []float64, counts []int) {
	mids = make([]float64, bins)
	counts = make([]int, bins)
	width := (hi - lo) / float64(bins)
	for i := 0; i < bins; i++ {
		mids[i] = lo + width*(float64(i)+0.5)
	}
	if width <= 0 {
		return mids, counts
	}
	for _, v := range values {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return mids, counts
}

// compact returns the non-null values of a masked column slice.
func compact(values []float64, valid []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// distinctCount counts distinct values; it short-circuits at 2 since callers
// only care whether a distribution is degenerate.
func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, 2)
	for _, v := range values {
		seen[v] = struct{}{}
		if len(seen) >= 2 {
			return 2
		}
	}
	return len(seen)
}
