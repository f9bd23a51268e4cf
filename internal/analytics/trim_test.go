package analytics

import (
	"testing"

	"github.com/gamebrain/shoplens/internal/table"
)

func floatTable(t *testing.T, name string, values []float64, valid []bool) *table.Table {
	t.Helper()
	tbl, err := table.New(table.FloatColumn(name, values, valid))
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestTrimOutliersPercentile(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i)
	}
	tbl := floatTable(t, "spend", values, nil)

	out, err := TrimOutliers(tbl, TrimSpec{Column: "spend", Lo: 0.05, Hi: 0.95})
	if err != nil {
		t.Fatalf("TrimOutliers: %v", err)
	}
	if out.Len() != 91 {
		t.Errorf("rows after trim = %d, want 91", out.Len())
	}
	vals, _, _ := out.Floats("spend")
	if vals[0] != 5 || vals[len(vals)-1] != 95 {
		t.Errorf("trimmed range = [%v, %v], want [5, 95]", vals[0], vals[len(vals)-1])
	}
}

func TestTrimOutliersSequential(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	tbl, err := table.New(
		table.FloatColumn("a", values, nil),
		table.FloatColumn("b", values, nil),
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	// The second step's bounds come from the rows the first step kept, so
	// the second trim removes rows again even though a and b are identical.
	out, terr := TrimOutliers(tbl,
		TrimSpec{Column: "a", Lo: 0.1, Hi: 0.9},
		TrimSpec{Column: "b", Lo: 0.1, Hi: 0.9},
	)
	if terr != nil {
		t.Fatalf("TrimOutliers: %v", terr)
	}
	first, ferr := TrimOutliers(tbl, TrimSpec{Column: "a", Lo: 0.1, Hi: 0.9})
	if ferr != nil {
		t.Fatalf("TrimOutliers: %v", ferr)
	}
	if out.Len() >= first.Len() {
		t.Errorf("sequential trim rows = %d, want fewer than %d", out.Len(), first.Len())
	}
}

func TestTrimOutliersIQR(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 1000}
	tbl := floatTable(t, "spend", values, nil)

	out, err := TrimOutliers(tbl, TrimSpec{Column: "spend", Lo: 0.25, Hi: 0.75, Method: MethodIQR})
	if err != nil {
		t.Fatalf("TrimOutliers: %v", err)
	}
	if out.Len() != 10 {
		t.Errorf("rows after IQR trim = %d, want 10", out.Len())
	}
}

func TestTrimOutliersDegenerate(t *testing.T) {
	tbl := floatTable(t, "spend", []float64{5, 5, 5, 5}, nil)

	out, err := TrimOutliers(tbl, TrimSpec{Column: "spend", Lo: 0.01, Hi: 0.99})
	if err != nil {
		t.Fatalf("TrimOutliers: %v", err)
	}
	if out.Len() != tbl.Len() {
		t.Errorf("rows after degenerate trim = %d, want %d unchanged", out.Len(), tbl.Len())
	}
}

func TestTrimOutliersDropsNulls(t *testing.T) {
	tbl := floatTable(t, "spend",
		[]float64{1, 2, 0, 3, 4},
		[]bool{true, true, false, true, true},
	)

	out, err := TrimOutliers(tbl, TrimSpec{Column: "spend", Lo: 0, Hi: 1})
	if err != nil {
		t.Fatalf("TrimOutliers: %v", err)
	}
	if out.Len() != 4 {
		t.Errorf("rows after trim = %d, want 4 (null removed)", out.Len())
	}
}

func TestTrimOutliersInvalidRange(t *testing.T) {
	tbl := floatTable(t, "spend", []float64{1, 2, 3}, nil)
	if _, err := TrimOutliers(tbl, TrimSpec{Column: "spend", Lo: 0.9, Hi: 0.1}); err == nil {
		t.Error("TrimOutliers with inverted range: expected error, got nil")
	}
}
