package config

import "github.com/coral-mesh/dwarfsql/internal/constants"

// Default returns a config with sensible defaults. Paths that depend on the
// base directory are left empty and filled in by Loader.Load.
func Default() *Config {
	return &Config{
		Version: SchemaVersion,
		Log: LogConfig{
			Level: "warn",
		},
		Engine: EngineConfig{
			Kind: constants.DefaultEngine,
		},
		Server: ServerConfig{
			Host:          constants.DefaultServerHost,
			Port:          constants.DefaultServerPort,
			ReadTimeout:   constants.DefaultReadTimeout,
			QueryTimeout:  constants.DefaultQueryTimeout,
			WatchDebounce: constants.DefaultWatchDebounce,
		},
		Shell: ShellConfig{
			Prompt: constants.DefaultPrompt,
		},
	}
}
