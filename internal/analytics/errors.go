package analytics

import "fmt"

// InsufficientDataError reports that a stage has fewer usable rows than it
// needs (e.g. clustering with fewer points than clusters). It is surfaced as
// an informational condition, not a crash.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d usable rows, got %d", e.Op, e.Need, e.Got)
}

// DegenerateDistributionError reports a column with zero variance where
// variance is required (standardization, correlation). The affected column is
// normally excluded from output rather than failing the whole invocation;
// this error is returned only when the degenerate column makes the entire
// computation meaningless (e.g. a constant correlation target).
type DegenerateDistributionError struct {
	Column string
}

func (e *DegenerateDistributionError) Error() string {
	return fmt.Sprintf("column %q has zero variance", e.Column)
}
