package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfsql/internal/constants"
	"github.com/coral-mesh/dwarfsql/internal/duckdb"
	"github.com/coral-mesh/dwarfsql/internal/extract"
)

var (
	// ErrNotFound is returned when a named entity does not exist in the catalog.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by queries on a closed store.
	ErrClosed = errors.New("catalog is closed")
)

// SessionOpener opens a debug session for a binary.
type SessionOpener func(path string) (*extract.Session, error)

// Options configures Open.
type Options struct {
	// Path is the binary to load.
	Path string
	// Engine is "duckdb" (default) or "sqlite".
	Engine string
	// Cache persists the database in CacheDir, keyed by the binary's
	// fingerprint, and reuses it on the next open.
	Cache    bool
	CacheDir string
	Threads  int
	Progress ProgressFunc
	Logger   zerolog.Logger
	// OpenSession overrides how the binary is opened.
	OpenSession SessionOpener
}

// Info describes the loaded database.
type Info struct {
	Path        string    `json:"binary"`
	Fingerprint string    `json:"fingerprint"`
	Engine      string    `json:"engine"`
	LoadedAt    time.Time `json:"loaded_at"`
	Cached      bool      `json:"cached"`
	DSN         string    `json:"-"`
}

// Dialect returns the SQL dialect of the engine that produced the database.
func (i Info) Dialect() duckdb.Dialect {
	if i.Engine == constants.EngineSQLite {
		return duckdb.DialectSQLite
	}
	return duckdb.DialectDuckDB
}

// Result is the outcome of a query.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// TableCount pairs a table with its row count.
type TableCount struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Layout is a struct with its members in offset order.
type Layout struct {
	Struct  extract.Struct   `json:"struct"`
	Members []extract.Member `json:"members"`
}

// Store serves queries over the tables of one binary. It is safe for
// concurrent use; Reload swaps the database under a write lock.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect duckdb.Dialect
	info    Info
	opts    Options
	logger  zerolog.Logger
}

// Open loads the binary at opts.Path into a new store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.OpenSession == nil {
		opts.OpenSession = func(path string) (*extract.Session, error) {
			s := extract.NewSession(opts.Logger)
			if err := s.Open(path); err != nil {
				return nil, err
			}
			return s, nil
		}
	}

	s := &Store{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "catalog").Logger(),
	}

	db, dialect, info, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.db, s.dialect, s.info = db, dialect, info
	return s, nil
}

// build opens the engine and fills it, or reuses a matching cache.
func (s *Store) build(ctx context.Context) (*sql.DB, duckdb.Dialect, Info, error) {
	fingerprint, err := Fingerprint(s.opts.Path)
	if err != nil {
		return nil, 0, Info{}, err
	}

	engine := s.opts.Engine
	if engine == "" {
		engine = constants.DefaultEngine
	}

	dsn := ""
	if s.opts.Cache {
		if err := os.MkdirAll(s.opts.CacheDir, 0o755); err != nil {
			return nil, 0, Info{}, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = filepath.Join(s.opts.CacheDir, fingerprint+"."+engine)
	}

	db, dialect, err := OpenEngine(engine, dsn, s.opts.Threads)
	if err != nil {
		return nil, 0, Info{}, err
	}

	info := Info{
		Path:        s.opts.Path,
		Fingerprint: fingerprint,
		Engine:      dialect.String(),
		DSN:         dsn,
	}

	if dsn != "" {
		if loadedAt, ok := cachedLoadTime(ctx, db, dialect, fingerprint); ok {
			info.LoadedAt = loadedAt
			info.Cached = true
			s.logger.Info().
				Str("binary", info.Path).
				Str("cache", dsn).
				Msg("Reusing cached database")
			return db, dialect, info, nil
		}
		// Leftovers of an interrupted load.
		if err := dropAll(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, 0, Info{}, fmt.Errorf("failed to reset cache %s: %w", dsn, err)
		}
	}

	if err := s.populate(ctx, db, dialect, &info); err != nil {
		_ = db.Close()
		if dsn != "" {
			_ = os.Remove(dsn)
			_ = os.Remove(dsn + ".wal")
		}
		return nil, 0, Info{}, err
	}
	return db, dialect, info, nil
}

func (s *Store) populate(ctx context.Context, db *sql.DB, dialect duckdb.Dialect, info *Info) error {
	session, err := s.opts.OpenSession(info.Path)
	if err != nil {
		return err
	}
	defer session.Close()

	start := time.Now()
	stats, err := Load(ctx, db, session, LoadOptions{
		Dialect:  dialect,
		Progress: s.opts.Progress,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}

	info.LoadedAt = time.Now()
	if err := writeMeta(ctx, db, dialect, *info); err != nil {
		return fmt.Errorf("failed to write %s: %w", MetaTable, err)
	}

	var rows int
	for _, st := range stats {
		rows += st.Rows
	}
	s.logger.Info().
		Str("binary", info.Path).
		Str("engine", info.Engine).
		Int("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("Loaded debug information")
	return nil
}

// Info returns a description of the loaded database.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Dialect returns the SQL dialect of the engine.
func (s *Store) Dialect() duckdb.Dialect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialect
}

// Query runs a SQL statement and returns all rows.
func (s *Store) Query(ctx context.Context, query string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	s.logger.Debug().Str("query", duckdb.InterpolateQuery(query, nil)).Msg("Executing query")

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// Tables returns every table with its row count.
func (s *Store) Tables(ctx context.Context) ([]TableCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	counts := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		n, err := t.count(ctx, s.db, s.dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.name, err)
		}
		counts = append(counts, TableCount{Name: t.name, Rows: n})
	}
	return counts, nil
}

// Describe returns the documentation of a table.
func (s *Store) Describe(name string) (TableDoc, bool) {
	return Describe(name, s.Dialect())
}

// FindFunctions returns up to limit functions whose name or linkage name
// matches the glob pattern, ordered by name. A limit <= 0 means no limit.
func (s *Store) FindFunctions(ctx context.Context, pattern string, limit int) ([]extract.Function, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	tbl := duckdb.NewTable[extract.Function](s.db, "functions", duckdb.WithDialect(s.dialect))
	prefix := globPrefix(pattern)
	candidates, err := tbl.Find(ctx, func(b *duckdb.Builder) {
		if prefix != "" {
			b.Like(prefix+"%", `"name"`, `"linkage_name"`)
		}
		b.OrderBy(`"name"`, `"id"`)
	})
	if err != nil {
		return nil, err
	}

	var out []extract.Function
	for _, f := range candidates {
		if !g.Match(f.Name) && !g.Match(f.LinkageName) {
			continue
		}
		out = append(out, *f)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// globPrefix returns the literal prefix of a glob pattern.
func globPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[{\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// StructLayout returns the members of the struct, class or union with the
// given name. A definition is preferred over declarations.
func (s *Store) StructLayout(ctx context.Context, name string) (*Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	structs, err := duckdb.NewTable[extract.Struct](s.db, "structs", duckdb.WithDialect(s.dialect)).
		List(ctx, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(structs) == 0 {
		return nil, fmt.Errorf("struct %q: %w", name, ErrNotFound)
	}

	chosen := structs[0]
	for _, st := range structs {
		if !st.Declaration {
			chosen = st
			break
		}
	}

	members, err := duckdb.NewTable[extract.Member](s.db, "struct_members", duckdb.WithDialect(s.dialect)).
		Find(ctx, func(b *duckdb.Builder) {
			b.Eq(`"struct_id"`, chosen.Offset).OrderBy(`"byte_offset"`, `"bit_offset"`, `"id"`)
		})
	if err != nil {
		return nil, err
	}

	layout := &Layout{Struct: *chosen, Members: make([]extract.Member, len(members))}
	for i, m := range members {
		layout.Members[i] = *m
	}
	return layout, nil
}

// CallSites returns every call site.
func (s *Store) CallSites(ctx context.Context) ([]extract.CallSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	items, err := duckdb.NewTable[extract.CallSite](s.db, "calls", duckdb.WithDialect(s.dialect)).List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]extract.CallSite, len(items))
	for i, c := range items {
		out[i] = *c
	}
	return out, nil
}

// Reload reloads the binary when its content changed. On failure the
// current database is kept.
func (s *Store) Reload(ctx context.Context) error {
	fingerprint, err := Fingerprint(s.opts.Path)
	if err != nil {
		return err
	}
	if fingerprint == s.Info().Fingerprint {
		s.logger.Debug().Str("binary", s.opts.Path).Msg("Binary unchanged, skipping reload")
		return nil
	}

	db, dialect, info, err := s.build(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload %s: %w", s.opts.Path, err)
	}

	s.mu.Lock()
	old := s.db
	s.db, s.dialect, s.info = db, dialect, info
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close previous database")
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
