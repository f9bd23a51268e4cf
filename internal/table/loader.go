package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gamebrain/shoplens/internal/metrics"
)

// maxCoercionWarnings caps the per-load volume of dropped-row log lines; the
// total is always reported once at the end.
const maxCoercionWarnings = 20

// Snapshot is one loaded copy of the record table plus its provenance. A
// Snapshot is immutable; a refresh builds a new one and swaps the pointer.
type Snapshot struct {
	Table       *Table
	Source      string
	SourceMtime time.Time
	LoadedAt    time.Time
	RowsRead    int
	RowsDropped int
}

// LoadCSV reads the IAP event export, validates the header against the
// declared schema in one pass, and coerces cells to their declared kinds.
// Rows whose numeric cells cannot be coerced (after currency/percent
// stripping) are dropped and counted; loading continues. Rows without a
// user level are dropped up front: they are malformed event stubs the
// upstream export is known to emit.
func LoadCSV(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var mtime time.Time
	if fi, statErr := f.Stat(); statErr == nil {
		mtime = fi.ModTime()
	}

	snap, err := loadCSVFrom(f, path)
	if err != nil {
		return nil, err
	}
	snap.SourceMtime = mtime
	return snap, nil
}

func loadCSVFrom(r io.Reader, source string) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", source, err)
	}

	headerIdx := make(map[string]int, len(header))
	for i, h := range header {
		headerIdx[h] = i
	}

	// Single validation pass: every absent source column is reported at once.
	srcIdx := make([]int, len(Schema))
	var missing []string
	for i, spec := range Schema {
		idx, ok := headerIdx[spec.Source]
		if !ok {
			missing = append(missing, spec.Source)
			continue
		}
		srcIdx[i] = idx
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}

	type cell struct {
		f     float64
		s     string
		ts    time.Time
		valid bool
	}

	var (
		rows        [][]cell
		rowsRead    int
		rowsDropped int
		warnings    int
	)

	levelCol := -1
	for i, spec := range Schema {
		if spec.Name == ColUserLevel {
			levelCol = i
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", source, err)
		}
		rowsRead++

		parsed := make([]cell, len(Schema))
		var coerceErr *CoercionError
		for i, spec := range Schema {
			if srcIdx[i] >= len(rec) {
				continue // short row: treat the tail as null
			}
			raw := rec[srcIdx[i]]
			if raw == "" {
				continue
			}
			switch spec.Kind {
			case KindString:
				parsed[i] = cell{s: raw, valid: true}
			case KindFloat:
				v, perr := ParseNumeric(raw)
				if perr != nil {
					coerceErr = &CoercionError{Column: spec.Name, Row: rowsRead, Value: raw, Err: perr}
				} else {
					parsed[i] = cell{f: v, valid: true}
				}
			case KindTime:
				ts, perr := ParseTime(raw)
				if perr != nil {
					coerceErr = &CoercionError{Column: spec.Name, Row: rowsRead, Value: raw, Err: perr}
				} else {
					parsed[i] = cell{ts: ts, valid: true}
				}
			}
			if coerceErr != nil {
				break
			}
		}

		if coerceErr != nil {
			rowsDropped++
			metrics.RowsDroppedTotal.WithLabelValues("coercion").Inc()
			if warnings < maxCoercionWarnings {
				slog.Warn("table: dropping row", "error", coerceErr)
				warnings++
			}
			continue
		}
		if levelCol >= 0 && !parsed[levelCol].valid {
			rowsDropped++
			metrics.RowsDroppedTotal.WithLabelValues("null_level").Inc()
			continue
		}
		rows = append(rows, parsed)
	}

	cols := make([]*Column, len(Schema))
	for i, spec := range Schema {
		cols[i] = NewColumn(spec.Name, spec.Kind, len(rows))
	}
	for r, row := range rows {
		for i, spec := range Schema {
			if !row[i].valid {
				continue
			}
			switch spec.Kind {
			case KindString:
				cols[i].SetString(r, row[i].s)
			case KindFloat:
				cols[i].SetFloat(r, row[i].f)
			case KindTime:
				cols[i].SetTime(r, row[i].ts)
			}
		}
	}

	tbl, err := New(cols...)
	if err != nil {
		return nil, err
	}

	if rowsDropped > 0 {
		slog.Warn("table: dropped rows during load", "source", source, "dropped", rowsDropped, "kept", tbl.Len())
	}

	return &Snapshot{
		Table:       tbl,
		Source:      source,
		LoadedAt:    time.Now(),
		RowsRead:    rowsRead,
		RowsDropped: rowsDropped,
	}, nil
}
