// Package store persists the loaded record table in SQLite so the service
// can come back up without the source CSV. Writes go through a single async
// writer goroutine; reads happen on startup only.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/gamebrain/shoplens/internal/table"
)

// Config holds database configuration.
type Config struct {
	Path string
}

// DB wraps a sql.DB holding the snapshot cache.
type DB struct {
	db *sql.DB
}

// RawDB returns the underlying *sql.DB for components that need direct access.
func (d *DB) RawDB() *sql.DB {
	return d.db
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Open creates the directory, opens the SQLite database, sets WAL mode and
// pragmas, and ensures the snapshot tables exist. The records table's DDL is
// derived from the declared column schema, so a schema change invalidates the
// cache loudly instead of silently misreading old rows.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// In WAL mode SQLite supports concurrent readers with a single writer.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{db: sqlDB}, nil
}

func createTables(db *sql.DB) error {
	var cols []string
	for _, spec := range table.Schema {
		cols = append(cols, fmt.Sprintf("%s %s", spec.Name, sqlType(spec.Kind)))
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			%s
		)`, strings.Join(cols, ",\n\t\t\t")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_records_user ON records(%s)`, table.ColUserID),

		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			source TEXT NOT NULL,
			source_mtime INTEGER NOT NULL,
			loaded_at INTEGER NOT NULL,
			rows_read INTEGER NOT NULL,
			rows_dropped INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func sqlType(kind table.Kind) string {
	switch kind {
	case table.KindFloat:
		return "REAL"
	default:
		// Times are stored as RFC3339 text.
		return "TEXT"
	}
}
