package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/url"
	"strconv"
	"strings"

	duckdbDriver "github.com/marcboeker/go-duckdb"
)

// OpenOptions tunes a DuckDB database opened with OpenDB.
type OpenOptions struct {
	// Threads caps the worker threads DuckDB uses. Zero keeps the default.
	Threads int
	// ReadOnly opens a persisted database without write access.
	ReadOnly bool
}

// connInit runs on every pooled connection. Row order of the loaded
// tables follows insertion order, which tests and callers rely on.
const connInit = "SET preserve_insertion_order = true"

// OpenDB opens a DuckDB database; "" and ":memory:" are in-memory.
// Threads and ReadOnly are passed as DSN parameters because DuckDB only
// reads them when the database is opened.
func OpenDB(dsn string, opts OpenOptions) (*sql.DB, error) {
	connector, err := duckdbDriver.NewConnector(injectConfig(dsn, opts), func(conn driver.ExecerContext) error {
		_, err := conn.ExecContext(context.Background(), connInit, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// injectConfig adds the open options to the DSN query parameters unless the
// caller already set them.
func injectConfig(dsn string, opts OpenOptions) string {
	path, query, _ := strings.Cut(dsn, "?")

	params, err := url.ParseQuery(query)
	if err != nil {
		return dsn
	}

	if opts.Threads > 0 && !params.Has("threads") {
		params.Set("threads", strconv.Itoa(opts.Threads))
	}
	if opts.ReadOnly && path != "" && path != ":memory:" && !params.Has("access_mode") {
		params.Set("access_mode", "READ_ONLY")
	}

	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
