package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/duckdb"
)

// OpenEngine opens a database for the named engine. An empty dsn opens an
// in-memory database.
func OpenEngine(kind, dsn string, threads int) (*sql.DB, duckdb.Dialect, error) {
	switch kind {
	case "", constants.EngineDuckDB:
		db, err := duckdb.OpenDB(dsn, duckdb.OpenOptions{Threads: threads})
		if err != nil {
			return nil, duckdb.DialectDuckDB, fmt.Errorf("failed to open duckdb: %w", err)
		}
		return db, duckdb.DialectDuckDB, nil

	case constants.EngineSQLite:
		memory := dsn == "" || dsn == ":memory:"
		if memory {
			dsn = ":memory:"
		}
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, duckdb.DialectSQLite, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if memory {
			// Each sqlite connection to :memory: is a separate database.
			db.SetMaxOpenConns(1)
		}
		return db, duckdb.DialectSQLite, nil

	default:
		return nil, duckdb.DialectDuckDB, fmt.Errorf("unknown engine %q", kind)
	}
}
