package table

import (
	"fmt"
	"strings"
)

// MissingColumnError reports every required column absent from a table in a
// single validation pass. An invocation that hits it produces no partial
// output.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Columns, ", "))
}

// CoercionError reports a value that could not be converted from its stored
// string form to the column's declared kind. The loader drops the offending
// row and continues; the error is never fatal for the load.
type CoercionError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("row %d: cannot coerce %q in column %q: %v", e.Row, e.Value, e.Column, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }
