package analytics

import (
	"fmt"

	"github.com/gamebrain/shoplens/internal/table"
)

// OutlierMethod selects how trim bounds are derived from a column.
type OutlierMethod string

const (
	// MethodPercentile clips directly at the lo/hi sample quantiles.
	MethodPercentile OutlierMethod = "percentile"
	// MethodIQR widens the lo/hi quantiles by a multiple of their spread:
	// bounds = [Qlo - m*(Qhi-Qlo), Qhi + m*(Qhi-Qlo)].
	MethodIQR OutlierMethod = "iqr"
)

// DefaultIQRMultiplier is Tukey's fence factor.
const DefaultIQRMultiplier = 1.5

// TrimSpec describes one column's trim step.
type TrimSpec struct {
	Column     string
	Lo, Hi     float64 // quantile fractions in [0,1], Lo < Hi
	Method     OutlierMethod
	Multiplier float64 // IQR fence multiplier; 0 means DefaultIQRMultiplier
}

// TrimOutliers applies the trim specs sequentially, in the given order: each
// step computes its quantile bounds from the column's values in the current
// working set, then narrows the set to rows inside [lo, hi]. The result row
// count is therefore non-increasing at each step. Rows where the trimmed
// column is null are removed by that step. A column with fewer than two
// distinct values degenerates and leaves the working set unchanged.
func TrimOutliers(t *table.Table, specs ...TrimSpec) (*table.Table, error) {
	cur := t
	for _, spec := range specs {
		next, err := trimOne(cur, spec)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func trimOne(t *table.Table, spec TrimSpec) (*table.Table, error) {
	if spec.Lo < 0 || spec.Hi > 1 || spec.Lo >= spec.Hi {
		return nil, fmt.Errorf("trim %s: invalid quantile range [%v, %v]", spec.Column, spec.Lo, spec.Hi)
	}
	values, valid, err := t.Floats(spec.Column)
	if err != nil {
		return nil, err
	}

	sample := compact(values, valid)
	if distinctCount(sample) < 2 {
		return t, nil
	}

	var lo, hi float64
	switch spec.Method {
	case MethodIQR:
		q1 := Quantile(sample, spec.Lo)
		q3 := Quantile(sample, spec.Hi)
		m := spec.Multiplier
		if m == 0 {
			m = DefaultIQRMultiplier
		}
		iqr := q3 - q1
		lo, hi = q1-m*iqr, q3+m*iqr
	case MethodPercentile, "":
		lo = Quantile(sample, spec.Lo)
		hi = Quantile(sample, spec.Hi)
	default:
		return nil, fmt.Errorf("trim %s: unknown outlier method %q", spec.Column, spec.Method)
	}

	return t.Where(func(row int) bool {
		return valid[row] && values[row] >= lo && values[row] <= hi
	}), nil
}
