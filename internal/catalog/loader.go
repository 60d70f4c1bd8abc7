package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfsql/internal/duckdb"
	"github.com/coral-mesh/dwarfsql/internal/extract"
)

// TableStat reports the outcome of loading one table.
type TableStat struct {
	Name     string
	Rows     int
	Index    int // 1-based position in the load order
	Total    int
	Duration time.Duration
}

// ProgressFunc is called after each table is loaded.
type ProgressFunc func(stat TableStat)

// LoadOptions configures Load.
type LoadOptions struct {
	Dialect  duckdb.Dialect
	Progress ProgressFunc
	Logger   zerolog.Logger
}

// Load creates every table and fills it from the session. The context is
// checked between tables; a cancelled load leaves the tables created so far.
func Load(ctx context.Context, db duckdb.Execer, s *extract.Session, opts LoadOptions) ([]TableStat, error) {
	if !s.IsOpen() {
		return nil, extract.ErrClosed
	}

	logger := opts.Logger.With().Str("binary", s.Path()).Logger()
	stats := make([]TableStat, 0, len(tables))

	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("load interrupted before %s: %w", t.name, err)
		}

		start := time.Now()
		n, err := t.load(ctx, db, opts.Dialect, s)
		if err != nil {
			return stats, fmt.Errorf("failed to load table %s: %w", t.name, err)
		}

		stat := TableStat{
			Name:     t.name,
			Rows:     n,
			Index:    i + 1,
			Total:    len(tables),
			Duration: time.Since(start),
		}
		stats = append(stats, stat)

		logger.Debug().
			Str("table", t.name).
			Int("rows", n).
			Dur("duration", stat.Duration).
			Msg("Loaded table")

		if opts.Progress != nil {
			opts.Progress(stat)
		}
	}

	return stats, nil
}

// dropAll removes every table, including the metadata table.
func dropAll(ctx context.Context, db duckdb.Execer, d duckdb.Dialect) error {
	for _, t := range tables {
		if err := t.drop(ctx, db, d); err != nil {
			return err
		}
	}
	return metaTable(db, d).Drop(ctx)
}
