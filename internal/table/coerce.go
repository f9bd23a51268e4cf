package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayouts are tried in order when parsing timestamp cells. The export
// pipeline has emitted both RFC3339 and plain datetime forms over time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseNumeric converts a cell to a float after stripping the currency and
// percent decorations the export sometimes carries: a leading "$", a trailing
// "%", and thousands separators. The cleaned string must parse as a decimal
// number; anything else is a coercion failure for the caller to handle.
func ParseNumeric(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// ParseTime parses a timestamp cell using the known layouts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Round2 rounds a value to 2 decimal places for display. Rounding happens
// only at the output boundary so intermediate stages never compound rounding
// error.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
