// Package table holds the in-memory columnar record table that every
// analytics stage reads from. Tables are immutable once built: filtering and
// derived columns always produce a new Table, so concurrent question
// computations over the same snapshot never interfere.
package table

import (
	"fmt"
	"time"
)

// Kind is the declared type of a column.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindTime
)

// Column is one typed column with a per-row validity mask. An invalid entry
// is a null: it is skipped by aggregations and excluded from bucketing.
type Column struct {
	name   string
	kind   Kind
	floats []float64
	strs   []string
	times  []time.Time
	valid  []bool
}

// NewColumn allocates an all-null column of length n.
func NewColumn(name string, kind Kind, n int) *Column {
	c := &Column{name: name, kind: kind, valid: make([]bool, n)}
	switch kind {
	case KindFloat:
		c.floats = make([]float64, n)
	case KindString:
		c.strs = make([]string, n)
	case KindTime:
		c.times = make([]time.Time, n)
	}
	return c
}

// FloatColumn builds a float column from values and an optional validity
// mask. A nil mask marks every entry valid.
func FloatColumn(name string, values []float64, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{name: name, kind: KindFloat, floats: values, valid: valid}
}

// StringColumn builds a string column from values and an optional validity
// mask.
func StringColumn(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{name: name, kind: KindString, strs: values, valid: valid}
}

// TimeColumn builds a time column from values and an optional validity mask.
func TimeColumn(name string, values []time.Time, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{name: name, kind: KindTime, times: values, valid: valid}
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) len() int     { return len(c.valid) }

func (c *Column) SetFloat(i int, v float64) { c.floats[i] = v; c.valid[i] = true }
func (c *Column) SetString(i int, v string) { c.strs[i] = v; c.valid[i] = true }
func (c *Column) SetTime(i int, v time.Time) {
	c.times[i] = v
	c.valid[i] = true
}

func (c *Column) sliceRows(idx []int) *Column {
	out := NewColumn(c.name, c.kind, len(idx))
	for j, i := range idx {
		out.valid[j] = c.valid[i]
		switch c.kind {
		case KindFloat:
			out.floats[j] = c.floats[i]
		case KindString:
			out.strs[j] = c.strs[i]
		case KindTime:
			out.times[j] = c.times[i]
		}
	}
	return out
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	n     int
	order []string
	cols  map[string]*Column
}

// New assembles a table from columns. All columns must have the same length
// and distinct names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: make(map[string]*Column, len(cols))}
	for i, c := range cols {
		if i == 0 {
			t.n = c.len()
		} else if c.len() != t.n {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.len(), t.n)
		}
		if _, dup := t.cols[c.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		t.cols[c.name] = c
		t.order = append(t.order, c.name)
	}
	return t, nil
}

// Len returns the row count.
func (t *Table) Len() int { return t.n }

// Columns returns column names in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether the table carries the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Require validates that every named column is present and returns a single
// MissingColumnError enumerating all absentees.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

func (t *Table) column(name string, kind Kind) (*Column, error) {
	c, ok := t.cols[name]
	if !ok {
		return nil, &MissingColumnError{Columns: []string{name}}
	}
	if c.kind != kind {
		return nil, fmt.Errorf("column %q has kind %d, want %d", name, c.kind, kind)
	}
	return c, nil
}

// Floats returns the value and validity slices of a float column. The slices
// are shared with the table and must not be mutated.
func (t *Table) Floats(name string) ([]float64, []bool, error) {
	c, err := t.column(name, KindFloat)
	if err != nil {
		return nil, nil, err
	}
	return c.floats, c.valid, nil
}

// Strings returns the value and validity slices of a string column.
func (t *Table) Strings(name string) ([]string, []bool, error) {
	c, err := t.column(name, KindString)
	if err != nil {
		return nil, nil, err
	}
	return c.strs, c.valid, nil
}

// Times returns the value and validity slices of a time column.
func (t *Table) Times(name string) ([]time.Time, []bool, error) {
	c, err := t.column(name, KindTime)
	if err != nil {
		return nil, nil, err
	}
	return c.times, c.valid, nil
}

// Select copies the given rows, in the given order, into a new table.
func (t *Table) Select(idx []int) *Table {
	out := &Table{n: len(idx), order: append([]string(nil), t.order...), cols: make(map[string]*Column, len(t.cols))}
	for _, name := range t.order {
		out.cols[name] = t.cols[name].sliceRows(idx)
	}
	return out
}

// Where selects the rows for which keep returns true.
func (t *Table) Where(keep func(row int) bool) *Table {
	idx := make([]int, 0, t.n)
	for i := 0; i < t.n; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return t.Select(idx)
}

// DropNull selects the rows where every named column is non-null.
func (t *Table) DropNull(names ...string) (*Table, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}
	masks := make([][]bool, len(names))
	for i, n := range names {
		masks[i] = t.cols[n].valid
	}
	return t.Where(func(row int) bool {
		for _, m := range masks {
			if !m[row] {
				return false
			}
		}
		return true
	}), nil
}

// WithColumn returns a copy of the table extended with one more column, which
// must match the row count. An existing column of the same name is replaced.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if c.len() != t.n {
		return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.len(), t.n)
	}
	out := &Table{n: t.n, cols: make(map[string]*Column, len(t.cols)+1)}
	for name, col := range t.cols {
		out.cols[name] = col
	}
	if _, exists := t.cols[c.name]; exists {
		out.order = append([]string(nil), t.order...)
	} else {
		out.order = append(append([]string(nil), t.order...), c.name)
	}
	out.cols[c.name] = c
	return out, nil
}
