package table

import (
	"errors"
	"testing"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		StringColumn("user", []string{"u1", "u2", "u3"}, nil),
		FloatColumn("spend", []float64{1.5, 0, 3}, []bool{true, false, true}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tbl
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New(
		StringColumn("user", []string{"u1", "u2"}, nil),
		FloatColumn("spend", []float64{1}, nil),
	)
	if err == nil {
		t.Error("New() expected error for mismatched column lengths")
	}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New(
		FloatColumn("spend", []float64{1}, nil),
		FloatColumn("spend", []float64{2}, nil),
	)
	if err == nil {
		t.Error("New() expected error for duplicate column name")
	}
}

func TestRequire(t *testing.T) {
	tbl := sampleTable(t)
	if err := tbl.Require("user", "spend"); err != nil {
		t.Errorf("Require() error = %v", err)
	}

	err := tbl.Require("user", "level", "country")
	var missing *MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("Require() error = %v, want MissingColumnError", err)
	}
	if len(missing.Columns) != 2 {
		t.Errorf("Columns = %v, want [level country]", missing.Columns)
	}
}

func TestFloatsRejectsWrongKind(t *testing.T) {
	tbl := sampleTable(t)
	if _, _, err := tbl.Floats("user"); err == nil {
		t.Error("Floats(user) expected kind error")
	}
}

func TestSelectReorders(t *testing.T) {
	tbl := sampleTable(t)
	out := tbl.Select([]int{2, 0})

	if out.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", out.Len())
	}
	users, _, _ := out.Strings("user")
	if users[0] != "u3" || users[1] != "u1" {
		t.Errorf("users = %v, want [u3 u1]", users)
	}
	// Validity travels with the rows.
	_, valid, _ := out.Floats("spend")
	if !valid[0] || !valid[1] {
		t.Errorf("valid = %v, want all true", valid)
	}
}

func TestDropNull(t *testing.T) {
	tbl := sampleTable(t)
	out, err := tbl.DropNull("spend")
	if err != nil {
		t.Fatalf("DropNull() error = %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("Len() = %d, want 2", out.Len())
	}
	users, _, _ := out.Strings("user")
	if users[0] != "u1" || users[1] != "u3" {
		t.Errorf("users = %v, want [u1 u3]", users)
	}

	if _, err := tbl.DropNull("missing"); err == nil {
		t.Error("DropNull(missing) expected error")
	}
}

func TestWithColumn(t *testing.T) {
	tbl := sampleTable(t)
	out, err := tbl.WithColumn(FloatColumn("level", []float64{1, 2, 3}, nil))
	if err != nil {
		t.Fatalf("WithColumn() error = %v", err)
	}
	if !out.Has("level") {
		t.Error("level column missing after WithColumn")
	}
	if tbl.Has("level") {
		t.Error("WithColumn mutated the source table")
	}

	// Replacing keeps the declaration order stable.
	out2, err := out.WithColumn(FloatColumn("spend", []float64{9, 9, 9}, nil))
	if err != nil {
		t.Fatalf("WithColumn(replace) error = %v", err)
	}
	cols := out2.Columns()
	if cols[1] != "spend" {
		t.Errorf("Columns() = %v, want spend second", cols)
	}

	if _, err := tbl.WithColumn(FloatColumn("short", []float64{1}, nil)); err == nil {
		t.Error("WithColumn(short) expected length error")
	}
}
