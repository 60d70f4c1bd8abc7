package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/dwarfsql/internal/duckdb"
	"github.com/coral-mesh/dwarfsql/internal/dwarfinfo"
	"github.com/coral-mesh/dwarfsql/pkg/version"
)

// MetaTable stores how a database was produced.
const MetaTable = "dwarfsql_meta"

// Metadata keys.
const (
	metaFingerprint = "fingerprint"
	metaPath        = "path"
	metaVersion     = "version"
	metaLoadedAt    = "loaded_at"
)

type metaEntry struct {
	Key   string `duckdb:"key,pk"`
	Value string `duckdb:"value"`
}

func metaTable(db duckdb.Execer, d duckdb.Dialect) *duckdb.Table[metaEntry] {
	return duckdb.NewTable[metaEntry](db, MetaTable, duckdb.WithDialect(d))
}

// Fingerprint returns the xxh3-128 hash of the file at path as 32 hex
// digits.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- the binary to inspect is user-selected.
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", dwarfinfo.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	sum := h.Sum128()
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo), nil
}

// writeMeta records the fingerprint and provenance of a loaded database.
func writeMeta(ctx context.Context, db duckdb.Execer, d duckdb.Dialect, info Info) error {
	tbl := metaTable(db, d)
	if err := tbl.Create(ctx); err != nil {
		return err
	}
	return tbl.BatchUpsert(ctx, []*metaEntry{
		{Key: metaFingerprint, Value: info.Fingerprint},
		{Key: metaPath, Value: info.Path},
		{Key: metaVersion, Value: version.Version},
		{Key: metaLoadedAt, Value: info.LoadedAt.UTC().Format(time.RFC3339)},
	})
}

// readMeta returns the stored metadata, or ok=false when the database was
// never completely loaded.
func readMeta(ctx context.Context, db duckdb.Execer, d duckdb.Dialect) (map[string]string, bool) {
	entries, err := metaTable(db, d).List(ctx, nil)
	if err != nil || len(entries) == 0 {
		return nil, false
	}

	meta := make(map[string]string, len(entries))
	for _, e := range entries {
		meta[e.Key] = e.Value
	}
	return meta, meta[metaFingerprint] != ""
}

// cachedLoadTime returns the load time of a cached database whose
// fingerprint matches, or ok=false.
func cachedLoadTime(ctx context.Context, db *sql.DB, d duckdb.Dialect, fingerprint string) (time.Time, bool) {
	meta, ok := readMeta(ctx, db, d)
	if !ok || meta[metaFingerprint] != fingerprint {
		return time.Time{}, false
	}
	loadedAt, err := time.Parse(time.RFC3339, meta[metaLoadedAt])
	if err != nil {
		return time.Time{}, false
	}
	return loadedAt, true
}
