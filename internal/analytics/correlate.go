package analytics

import (
	"sort"

	"github.com/gamebrain/shoplens/internal/table"
)

// CorrelationOptions controls the trim applied before measuring correlation.
type CorrelationOptions struct {
	Lo, Hi      float64  // trim quantiles; zero values mean 0.01 / 0.99
	TrimColumns []string // defaults to the target column
}

// Correlation is one predictor's Pearson coefficient against the target.
type Correlation struct {
	Metric      string  `json:"metric"`
	Coefficient float64 `json:"coefficient"`
}

// CorrelationReport holds the per-predictor coefficients sorted by descending
// coefficient, plus the predictors excluded for zero variance and the row
// count the coefficients were computed over.
type CorrelationReport struct {
	Results  []Correlation `json:"results"`
	Excluded []string      `json:"excluded,omitempty"`
	Rows     int           `json:"rows"`
}

// Correlate measures each predictor column's Pearson correlation with the
// target over the complete-case rows remaining after trimming. Ties in the
// coefficient keep the predictors' input order. A constant target makes every
// coefficient undefined and fails the run; a constant predictor is merely
// excluded.
func Correlate(t *table.Table, predictors []string, target string, opt CorrelationOptions) (*CorrelationReport, error) {
	if err := t.Require(append(append([]string(nil), predictors...), target)...); err != nil {
		return nil, err
	}
	lo, hi := opt.Lo, opt.Hi
	if lo == 0 && hi == 0 {
		lo, hi = 0.01, 0.99
	}
	trimCols := opt.TrimColumns
	if len(trimCols) == 0 {
		trimCols = []string{target}
	}
	specs := make([]TrimSpec, len(trimCols))
	for i, c := range trimCols {
		specs[i] = TrimSpec{Column: c, Lo: lo, Hi: hi}
	}
	trimmed, err := TrimOutliers(t, specs...)
	if err != nil {
		return nil, err
	}

	cols := append(append([]string(nil), predictors...), target)
	complete, err := trimmed.DropNull(cols...)
	if err != nil {
		return nil, err
	}
	if complete.Len() < 2 {
		return nil, &InsufficientDataError{Op: "correlate", Need: 2, Got: complete.Len()}
	}

	targetVals, _, err := complete.Floats(target)
	if err != nil {
		return nil, err
	}
	if distinctCount(targetVals) < 2 {
		return nil, &DegenerateDistributionError{Column: target}
	}

	report := &CorrelationReport{Rows: complete.Len()}
	for _, p := range predictors {
		vals, _, perr := complete.Floats(p)
		if perr != nil {
			return nil, perr
		}
		if distinctCount(vals) < 2 {
			report.Excluded = append(report.Excluded, p)
			continue
		}
		report.Results = append(report.Results, Correlation{
			Metric:      p,
			Coefficient: pearson(vals, targetVals),
		})
	}
	sort.SliceStable(report.Results, func(a, b int) bool {
		return report.Results[a].Coefficient > report.Results[b].Coefficient
	})
	return report, nil
}
