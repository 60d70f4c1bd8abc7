// Package config loads the dwarfsql configuration from defaults, the YAML
// file, DWARFSQL_* environment variables and command-line flags.
package config

import "time"

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents ~/.dwarfsql/config.yaml.
type Config struct {
	Version string       `yaml:"version"`
	Log     LogConfig    `yaml:"log"`
	Engine  EngineConfig `yaml:"engine"`
	Server  ServerConfig `yaml:"server"`
	Shell   ShellConfig  `yaml:"shell"`
	MCP     MCPConfig    `yaml:"mcp,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"DWARFSQL_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"DWARFSQL_LOG_PRETTY"`
}

// EngineConfig selects and tunes the relational engine.
type EngineConfig struct {
	Kind     string `yaml:"kind" env:"DWARFSQL_ENGINE"` // "duckdb" or "sqlite"
	Cache    bool   `yaml:"cache" env:"DWARFSQL_CACHE"` // persist loaded databases in CacheDir
	CacheDir string `yaml:"cache_dir,omitempty" env:"DWARFSQL_CACHE_DIR"`
	Threads  int    `yaml:"threads,omitempty" env:"DWARFSQL_THREADS"` // 0 keeps the engine default
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Host          string        `yaml:"host" env:"DWARFSQL_HOST"`
	Port          int           `yaml:"port" env:"DWARFSQL_PORT"`
	Token         string        `yaml:"token,omitempty" env:"DWARFSQL_TOKEN"`
	ReadTimeout   time.Duration `yaml:"read_timeout" env:"DWARFSQL_READ_TIMEOUT"`
	QueryTimeout  time.Duration `yaml:"query_timeout" env:"DWARFSQL_QUERY_TIMEOUT"`
	WatchDebounce time.Duration `yaml:"watch_debounce,omitempty" env:"DWARFSQL_WATCH_DEBOUNCE"`
	RateLimit     string        `yaml:"rate_limit,omitempty" env:"DWARFSQL_RATE_LIMIT"` // e.g. "100/minute" per client
}

// ShellConfig contains interactive shell settings.
type ShellConfig struct {
	HistoryFile string `yaml:"history_file,omitempty" env:"DWARFSQL_HISTORY_FILE"`
	Prompt      string `yaml:"prompt,omitempty"`
}

// MCPConfig contains MCP server settings.
type MCPConfig struct {
	EnabledTools []string `yaml:"enabled_tools,omitempty" env:"DWARFSQL_MCP_TOOLS"` // empty enables all tools
	Audit        bool     `yaml:"audit,omitempty" env:"DWARFSQL_MCP_AUDIT"`
}
