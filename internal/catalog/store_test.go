package catalog

import (
	"context"
	"os"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfsql/internal/extract"
)

func TestStore_Query(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			store := openStore(t, engine)

			res, err := store.Query(context.Background(), `SELECT name, is_external FROM functions ORDER BY name`)
			require.NoError(t, err)
			assert.Equal(t, []string{"name", "is_external"}, res.Columns)
			require.Len(t, res.Rows, 2)
			assert.Equal(t, "helper", res.Rows[0][0])
			assert.Equal(t, "main", res.Rows[1][0])

			_, err = store.Query(context.Background(), `SELECT * FROM missing_table`)
			assert.Error(t, err)

			info := store.Info()
			assert.Equal(t, engine, info.Engine)
			assert.False(t, info.Cached)
			assert.Len(t, info.Fingerprint, 32)
			assert.False(t, info.LoadedAt.IsZero())
		})
	}
}

func TestStore_EmptyResult(t *testing.T) {
	store := openStore(t, "sqlite")

	res, err := store.Query(context.Background(), `SELECT name FROM functions WHERE name = 'nope'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestStore_Tables(t *testing.T) {
	store := openStore(t, "duckdb")

	counts, err := store.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, len(TableNames()))

	byName := map[string]int64{}
	for _, c := range counts {
		byName[c.Name] = c.Rows
	}
	assert.EqualValues(t, 2, byName["functions"])
	assert.EqualValues(t, 2, byName["enum_values"])
	assert.EqualValues(t, 0, byName["namespaces"])
}

func TestStore_FindFunctions(t *testing.T) {
	tests := []struct {
		pattern string
		limit   int
		want    []string
	}{
		{"main", 0, []string{"main"}},
		{"*", 0, []string{"helper", "main"}},
		{"*", 1, []string{"helper"}},
		{"h*", 0, []string{"helper"}},
		{"_Z6*", 0, []string{"helper"}},
		{"m?in", 0, []string{"main"}},
		{"nothing*", 0, nil},
	}

	for _, engine := range engines {
		store := openStore(t, engine)
		for _, tt := range tests {
			t.Run(engine+"/"+tt.pattern, func(t *testing.T) {
				fns, err := store.FindFunctions(context.Background(), tt.pattern, tt.limit)
				require.NoError(t, err)

				var names []string
				for _, f := range fns {
					names = append(names, f.Name)
				}
				assert.Equal(t, tt.want, names)
			})
		}
	}

	store := openStore(t, "sqlite")
	_, err := store.FindFunctions(context.Background(), "[", 0)
	assert.Error(t, err)
}

func TestGlobPrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"main", "main"},
		{"foo*", "foo"},
		{"*foo", ""},
		{"a?c", "a"},
		{"ns[ab]", "ns"},
		{"{a,b}", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, globPrefix(tt.in), tt.in)
	}
}

func TestStore_StructLayout(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			store := openStore(t, engine)

			layout, err := store.StructLayout(context.Background(), "Point")
			require.NoError(t, err)
			assert.Equal(t, "Point", layout.Struct.Name)
			assert.EqualValues(t, 8, layout.Struct.ByteSize)
			require.Len(t, layout.Members, 2)
			assert.Equal(t, "x", layout.Members[0].Name)
			assert.Equal(t, "y", layout.Members[1].Name)
			assert.EqualValues(t, 4, layout.Members[1].ByteOffset)

			fwd, err := store.StructLayout(context.Background(), "Fwd")
			require.NoError(t, err)
			assert.True(t, fwd.Struct.Declaration)
			assert.Empty(t, fwd.Members)

			_, err = store.StructLayout(context.Background(), "Missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CallSites(t *testing.T) {
	store := openStore(t, "duckdb")

	calls, err := store.CallSites(context.Background())
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "main", calls[0].CallerName)
	assert.Equal(t, "helper", calls[0].CalleeName)
	assert.EqualValues(t, 0x60, calls[0].CalleeOffset)
	assert.EqualValues(t, 0x1024, calls[0].PC)
}

func TestStore_Cache(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			var calls atomic.Int32
			opts := Options{
				Path:        fakeBinary(t, "cached"),
				Engine:      engine,
				Cache:       true,
				CacheDir:    t.TempDir(),
				Logger:      zerolog.Nop(),
				OpenSession: countingOpener(&calls),
			}

			first, err := Open(context.Background(), opts)
			require.NoError(t, err)
			assert.False(t, first.Info().Cached)
			assert.FileExists(t, first.Info().DSN)
			require.NoError(t, first.Close())

			second, err := Open(context.Background(), opts)
			require.NoError(t, err)
			defer second.Close()

			assert.True(t, second.Info().Cached)
			assert.EqualValues(t, 1, calls.Load(), "cached database must not be rebuilt")
			assert.Equal(t, first.Info().LoadedAt.Unix(), second.Info().LoadedAt.Unix())

			fns, err := second.FindFunctions(context.Background(), "*", 0)
			require.NoError(t, err)
			assert.Len(t, fns, 2)
		})
	}
}

func TestStore_CacheRemovedOnFailure(t *testing.T) {
	opts := Options{
		Path:     fakeBinary(t, "broken"),
		Engine:   "sqlite",
		Cache:    true,
		CacheDir: t.TempDir(),
		Logger:   zerolog.Nop(),
		OpenSession: func(string) (*extract.Session, error) {
			return extract.NewSession(zerolog.Nop()), nil
		},
	}

	_, err := Open(context.Background(), opts)
	require.ErrorIs(t, err, extract.ErrClosed)

	entries, err := os.ReadDir(opts.CacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Reload(t *testing.T) {
	var calls atomic.Int32
	path := fakeBinary(t, "v1")
	store, err := Open(context.Background(), Options{
		Path:        path,
		Engine:      "sqlite",
		Logger:      zerolog.Nop(),
		OpenSession: countingOpener(&calls),
	})
	require.NoError(t, err)
	defer store.Close()

	before := store.Info().Fingerprint

	require.NoError(t, store.Reload(context.Background()))
	assert.EqualValues(t, 1, calls.Load(), "unchanged binary is not reloaded")

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, store.Reload(context.Background()))
	assert.EqualValues(t, 2, calls.Load())
	assert.NotEqual(t, before, store.Info().Fingerprint)

	res, err := store.Query(context.Background(), `SELECT count(*) FROM functions`)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Rows[0][0])
}

func TestStore_ReloadFailureKeepsDatabase(t *testing.T) {
	path := fakeBinary(t, "v2")
	store := openStore(t, "sqlite")
	store.opts.Path = path
	store.opts.OpenSession = func(string) (*extract.Session, error) {
		return nil, assert.AnError
	}
	before := store.Info()

	err := store.Reload(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, before, store.Info())

	res, err := store.Query(context.Background(), `SELECT count(*) FROM functions`)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Rows[0][0])
}

func TestStore_Close(t *testing.T) {
	store := openStore(t, "sqlite")
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Query(context.Background(), `SELECT 1`)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Tables(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_MissingBinary(t *testing.T) {
	_, err := Open(context.Background(), Options{Path: "/nonexistent/binary", Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestOpenEngine_Unknown(t *testing.T) {
	_, _, err := OpenEngine("postgres", "", 0)
	assert.ErrorContains(t, err, "unknown engine")
}
