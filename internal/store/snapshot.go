package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gamebrain/shoplens/internal/table"
)

// SaveSnapshot replaces the cached records with the given snapshot inside one
// transaction, so a crash mid-write leaves the previous cache intact.
func (d *DB) SaveSnapshot(snap *table.Snapshot) error {
	return saveSnapshot(d.db, snap)
}

func saveSnapshot(db *sql.DB, snap *table.Snapshot) error {
	t := snap.Table

	type colAccess struct {
		spec  table.ColumnSpec
		value func(row int) (any, bool)
	}
	accessors := make([]colAccess, 0, len(table.Schema))
	for _, spec := range table.Schema {
		spec := spec
		var value func(row int) (any, bool)
		switch spec.Kind {
		case table.KindFloat:
			vals, valid, err := t.Floats(spec.Name)
			if err != nil {
				return fmt.Errorf("snapshot column %s: %w", spec.Name, err)
			}
			value = func(row int) (any, bool) { return vals[row], valid[row] }
		case table.KindTime:
			vals, valid, err := t.Times(spec.Name)
			if err != nil {
				return fmt.Errorf("snapshot column %s: %w", spec.Name, err)
			}
			value = func(row int) (any, bool) { return vals[row].Format(time.RFC3339), valid[row] }
		default:
			vals, valid, err := t.Strings(spec.Name)
			if err != nil {
				return fmt.Errorf("snapshot column %s: %w", spec.Name, err)
			}
			value = func(row int) (any, bool) { return vals[row], valid[row] }
		}
		accessors = append(accessors, colAccess{spec: spec, value: value})
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	names := make([]string, len(accessors))
	marks := make([]string, len(accessors))
	for i, a := range accessors {
		names[i] = a.spec.Name
		marks[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO records (%s) VALUES (%s)",
		strings.Join(names, ", "), strings.Join(marks, ", "),
	))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(accessors))
	for row := 0; row < t.Len(); row++ {
		for i, a := range accessors {
			if v, ok := a.value(row); ok {
				args[i] = v
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting record %d: %w", row, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO snapshot_meta (id, source, source_mtime, loaded_at, rows_read, rows_dropped)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			source_mtime = excluded.source_mtime,
			loaded_at = excluded.loaded_at,
			rows_read = excluded.rows_read,
			rows_dropped = excluded.rows_dropped`,
		snap.Source, snap.SourceMtime.Unix(), snap.LoadedAt.Unix(),
		snap.RowsRead, snap.RowsDropped,
	); err != nil {
		return fmt.Errorf("writing snapshot meta: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot hydrates a snapshot from the cache. It returns sql.ErrNoRows
// wrapped when no snapshot has ever been saved.
func (d *DB) LoadSnapshot() (*table.Snapshot, error) {
	snap := &table.Snapshot{}
	var mtime, loadedAt int64
	err := d.db.QueryRow(
		"SELECT source, source_mtime, loaded_at, rows_read, rows_dropped FROM snapshot_meta WHERE id = 1",
	).Scan(&snap.Source, &mtime, &loadedAt, &snap.RowsRead, &snap.RowsDropped)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot meta: %w", err)
	}
	snap.SourceMtime = time.Unix(mtime, 0).UTC()
	snap.LoadedAt = time.Unix(loadedAt, 0).UTC()

	names := make([]string, len(table.Schema))
	for i, spec := range table.Schema {
		names[i] = spec.Name
	}
	rows, err := d.db.Query(fmt.Sprintf("SELECT %s FROM records ORDER BY id", strings.Join(names, ", ")))
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	defer rows.Close()

	var (
		floats  = make(map[string][]float64)
		fValid  = make(map[string][]bool)
		strs    = make(map[string][]string)
		sValid  = make(map[string][]bool)
		times   = make(map[string][]time.Time)
		tmValid = make(map[string][]bool)
	)

	dest := make([]any, len(table.Schema))
	for rows.Next() {
		holders := make([]any, len(table.Schema))
		for i, spec := range table.Schema {
			switch spec.Kind {
			case table.KindFloat:
				holders[i] = &sql.NullFloat64{}
			default:
				holders[i] = &sql.NullString{}
			}
			dest[i] = holders[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		for i, spec := range table.Schema {
			switch spec.Kind {
			case table.KindFloat:
				v := holders[i].(*sql.NullFloat64)
				floats[spec.Name] = append(floats[spec.Name], v.Float64)
				fValid[spec.Name] = append(fValid[spec.Name], v.Valid)
			case table.KindTime:
				v := holders[i].(*sql.NullString)
				var ts time.Time
				ok := v.Valid
				if ok {
					parsed, perr := time.Parse(time.RFC3339, v.String)
					if perr != nil {
						ok = false
					} else {
						ts = parsed
					}
				}
				times[spec.Name] = append(times[spec.Name], ts)
				tmValid[spec.Name] = append(tmValid[spec.Name], ok)
			default:
				v := holders[i].(*sql.NullString)
				strs[spec.Name] = append(strs[spec.Name], v.String)
				sValid[spec.Name] = append(sValid[spec.Name], v.Valid)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	cols := make([]*table.Column, 0, len(table.Schema))
	for _, spec := range table.Schema {
		switch spec.Kind {
		case table.KindFloat:
			cols = append(cols, table.FloatColumn(spec.Name, floats[spec.Name], fValid[spec.Name]))
		case table.KindTime:
			cols = append(cols, table.TimeColumn(spec.Name, times[spec.Name], tmValid[spec.Name]))
		default:
			cols = append(cols, table.StringColumn(spec.Name, strs[spec.Name], sValid[spec.Name]))
		}
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("assembling cached table: %w", err)
	}
	snap.Table = t
	return snap, nil
}
