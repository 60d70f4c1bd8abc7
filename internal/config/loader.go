package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/dwarfsql/internal/constants"
)

// Loader resolves the configuration directory and loads or saves the
// configuration file inside it.
type Loader struct {
	baseDir string
}

// NewLoader creates a new config loader.
// The base directory is resolved in this order:
//  1. DWARFSQL_CONFIG environment variable.
//  2. ~/.dwarfsql.
//  3. <tmp>/dwarfsql when no home directory exists.
func NewLoader() *Loader {
	if baseDir := os.Getenv(constants.ConfigDirEnv); baseDir != "" {
		return &Loader{baseDir: baseDir}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: filepath.Join(homeDir, constants.DefaultDir)}
	}

	return &Loader{baseDir: filepath.Join(os.TempDir(), constants.AppName)}
}

// NewLoaderAt creates a loader rooted at baseDir.
func NewLoaderAt(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// BaseDir returns the configuration directory.
func (l *Loader) BaseDir() string {
	return l.baseDir
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.baseDir, constants.ConfigFile)
}

// Load loads the configuration from explicitPath, or from ConfigPath when
// explicitPath is empty, applies the environment and the flags that were
// set, resolves relative paths and validates the result.
func (l *Loader) Load(explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = l.ConfigPath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := NewLayeredLoader().WithFlags(flags).Load(path)
	if err != nil {
		return nil, err
	}

	l.resolvePaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// resolvePaths fills in paths derived from the base directory and expands
// a leading "~/".
func (l *Loader) resolvePaths(cfg *Config) {
	if cfg.Engine.CacheDir == "" {
		cfg.Engine.CacheDir = filepath.Join(l.baseDir, constants.CacheDirName)
	}
	cfg.Engine.CacheDir = ExpandHome(cfg.Engine.CacheDir)

	if cfg.Shell.HistoryFile == "" {
		cfg.Shell.HistoryFile = filepath.Join(l.baseDir, constants.HistoryFile)
	}
	cfg.Shell.HistoryFile = ExpandHome(cfg.Shell.HistoryFile)
}

// Save writes cfg to ConfigPath. The file may hold the server token, so it
// is only readable by the owner.
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(l.baseDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
