package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfsql/internal/catalog"
	"github.com/coral-mesh/dwarfsql/internal/constants"
)

func testShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	a := testApp(t)
	store, err := catalog.Open(context.Background(), catalog.Options{
		Path:        fakeBinary(t),
		Engine:      constants.EngineSQLite,
		Logger:      zerolog.Nop(),
		OpenSession: a.openSession,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var out bytes.Buffer
	return newShell(store, &out, ""), &out
}

func TestShellStatements(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		contains []string
		excludes []string
	}{
		{
			name:     "single line",
			lines:    []string{"SELECT name FROM functions ORDER BY name;"},
			contains: []string{"helper\nleaf\nmain\n", "(3 rows in "},
		},
		{
			name:     "multi line",
			lines:    []string{"SELECT name", "FROM structs", ";"},
			contains: []string{"Point", "(1 row in "},
		},
		{
			name:     "incomplete statement is not run",
			lines:    []string{"SELECT name FROM structs"},
			excludes: []string{"Point"},
		},
		{
			name:     "sql error",
			lines:    []string{"SELEC 1;"},
			contains: []string{"Error: "},
		},
		{
			name:     "blank lines are ignored",
			lines:    []string{"", "   ", "SELECT 1 AS one;"},
			contains: []string{"one\n---\n1\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, out := testShell(t)
			for _, line := range tt.lines {
				assert.False(t, sh.handleLine(context.Background(), line))
			}
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out.String(), unwanted)
			}
		})
	}
}

func TestShellMetaCommands(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		exit     bool
		contains []string
	}{
		{name: "exit", line: ".exit", exit: true},
		{name: "quit", line: ".quit", exit: true},
		{name: "help", line: ".help", contains: []string{".tables", ".schema [table]", ".find <glob>"}},
		{name: "tables", line: ".tables", contains: []string{"functions", "struct_members"}},
		{name: "schema one", line: ".schema structs", contains: []string{"structs", "byte_size"}},
		{name: "schema all", line: ".schema", contains: []string{"compilation_units", "namespaces"}},
		{name: "schema unknown", line: ".schema nope", contains: []string{"Error: unknown table: nope"}},
		{name: "info", line: ".info", contains: []string{"binary", "fingerprint", "engine", "sqlite"}},
		{name: "find", line: ".find _Z*", contains: []string{"helper", "_Z6helperv", "0x1100", "(1 row)"}},
		{name: "find usage", line: ".find", contains: []string{"usage: .find <glob>"}},
		{name: "clear", line: ".clear", contains: []string{"\033[H\033[2J"}},
		{name: "unknown", line: ".bogus", contains: []string{"unknown meta-command: .bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, out := testShell(t)
			assert.Equal(t, tt.exit, sh.handleLine(context.Background(), tt.line))
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestShellPrompt(t *testing.T) {
	sh, _ := testShell(t)
	ctx := context.Background()

	assert.Equal(t, constants.DefaultPrompt, sh.currentPrompt())

	sh.handleLine(ctx, "SELECT *")
	assert.Equal(t, constants.ContinuePrompt, sh.currentPrompt())

	// A line starting with "." inside a statement is SQL, not a meta-command.
	assert.False(t, sh.handleLine(ctx, ".exit"))
	assert.Equal(t, constants.ContinuePrompt, sh.currentPrompt())

	sh.interrupt()
	assert.Equal(t, constants.DefaultPrompt, sh.currentPrompt())
	assert.True(t, sh.handleLine(ctx, ".exit"))
}

func TestShellBanner(t *testing.T) {
	sh, out := testShell(t)
	sh.banner()
	assert.Contains(t, out.String(), "dwarfsql")
	assert.Contains(t, out.String(), "sqlite database, loaded at")
}
