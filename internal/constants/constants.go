// Package constants defines shared configuration constants.
package constants

import "time"

const (
	// AppName is the binary and configuration directory name.
	AppName = "dwarfsql"

	// ConfigFile is the configuration file inside DefaultDir.
	ConfigFile = "config.yaml"

	// DefaultDir is the per-user base directory, relative to the home
	// directory.
	DefaultDir = ".dwarfsql"

	// ConfigDirEnv overrides the base directory.
	ConfigDirEnv = "DWARFSQL_CONFIG"

	// CacheDirName holds persisted databases inside the base directory.
	CacheDirName = "cache"

	// HistoryFile keeps the interactive shell history.
	HistoryFile = "history"
)

// Engine defaults.
const (
	EngineDuckDB = "duckdb"
	EngineSQLite = "sqlite"

	DefaultEngine = EngineDuckDB
)

// Server defaults.
const (
	DefaultServerHost = "127.0.0.1"

	// DefaultServerPort is the HTTP API port used by `serve` and `remote`.
	DefaultServerPort = 17199

	DefaultReadTimeout  = 30 * time.Second
	DefaultQueryTimeout = 60 * time.Second

	// DefaultWatchDebounce coalesces bursts of writes to a watched binary.
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Shell defaults.
const (
	DefaultPrompt     = "dwarfsql> "
	ContinuePrompt    = "     ...> "
	DefaultCallDepth  = 3
	DefaultFindLimit  = 50
	DefaultQueryLimit = 1000
)
