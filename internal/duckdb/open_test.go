package duckdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDB_InMemory(t *testing.T) {
	db, err := OpenDB("", OpenOptions{Threads: 2})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var threads int64
	require.NoError(t, db.QueryRow("SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, int64(2), threads)

	// Connections of the pool share one in-memory database.
	ctx := context.Background()
	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_, err = conn.ExecContext(ctx, "INSERT INTO t VALUES (1)")
	require.NoError(t, err)
}

func TestOpenDB_PersistedReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.duckdb")

	func() {
		db, err := OpenDB(path, OpenOptions{})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		_, err = db.Exec("CREATE TABLE functions (id UBIGINT PRIMARY KEY, name VARCHAR)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO functions VALUES (64, 'main')")
		require.NoError(t, err)
	}()

	db, err := OpenDB(path, OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM functions WHERE id = 64").Scan(&name))
	assert.Equal(t, "main", name)

	_, err = db.Exec("INSERT INTO functions VALUES (65, 'helper')")
	assert.Error(t, err, "read-only database rejects writes")
}

func TestInjectConfig(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		opts OpenOptions
		want string
	}{
		{"empty dsn without options", "", OpenOptions{}, ""},
		{"in-memory with threads", "", OpenOptions{Threads: 4}, "?threads=4"},
		{"memory keyword stays writable", ":memory:", OpenOptions{ReadOnly: true}, ":memory:"},
		{"file read-only", "/tmp/a.duckdb", OpenOptions{ReadOnly: true}, "/tmp/a.duckdb?access_mode=READ_ONLY"},
		{"existing params kept", "/tmp/a.duckdb?threads=1", OpenOptions{Threads: 8}, "/tmp/a.duckdb?threads=1"},
		{"params merged", "/tmp/a.duckdb?memory_limit=1GB", OpenOptions{Threads: 2}, "/tmp/a.duckdb?memory_limit=1GB&threads=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, injectConfig(tt.dsn, tt.opts))
		})
	}
}
