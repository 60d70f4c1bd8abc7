package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.String("engine", "duckdb", "")
	fs.Bool("cache", false, "")
	fs.Int("port", 17199, "")
	fs.Duration("query-timeout", time.Minute, "")
	return fs
}

func TestLayeredLoader_DefaultsOnly(t *testing.T) {
	loader := NewLayeredLoader()
	loader.DisableLayer(LayerFile)
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLayeredLoader_NoDefaults(t *testing.T) {
	loader := NewLayeredLoader()
	loader.DisableLayer(LayerDefaults)
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLayeredLoader_Precedence(t *testing.T) {
	path := writeConfig(t, `
log:
  level: info
engine:
  kind: sqlite
  cache: true
server:
  port: 9000
  query_timeout: 10s
mcp:
  enabled_tools: [dwarf_query]
`)

	t.Setenv("DWARFSQL_PORT", "9100")
	t.Setenv("DWARFSQL_LOG_LEVEL", "error")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--log-level", "debug"}))

	cfg, err := NewLayeredLoader().WithFlags(fs).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level, "flags override env")
	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "sqlite", cfg.Engine.Kind, "unset flag keeps file value")
	assert.True(t, cfg.Engine.Cache)
	assert.Equal(t, 10*time.Second, cfg.Server.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout, "file keeps unspecified defaults")
	assert.Equal(t, []string{"dwarf_query"}, cfg.MCP.EnabledTools)
}

func TestLayeredLoader_FlagsLayerDisabled(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--engine", "sqlite", "--cache"}))

	loader := NewLayeredLoader().WithFlags(fs)
	loader.DisableLayer(LayerFlags)

	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Engine.Kind)
	assert.False(t, cfg.Engine.Cache)

	loader.EnableLayer(LayerFlags)
	cfg, err = loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Engine.Kind)
	assert.True(t, cfg.Engine.Cache)
}

func TestLayeredLoader_MissingFile(t *testing.T) {
	cfg, err := NewLayeredLoader().Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Engine.Kind)
}

func TestLayeredLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")

	_, err := NewLayeredLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}
