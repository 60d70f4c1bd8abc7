package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Layer names one configuration source.
type Layer string

// Layers in increasing order of precedence.
const (
	LayerDefaults Layer = "defaults"
	LayerFile     Layer = "file"
	LayerEnv      Layer = "env"
	LayerFlags    Layer = "flags"
)

// LayeredLoader merges the built-in defaults, a YAML file, DWARFSQL_*
// environment variables and explicitly set flags, each source overriding
// the ones before it.
type LayeredLoader struct {
	disabled map[Layer]bool
	flags    *pflag.FlagSet
}

// NewLayeredLoader enables every layer. The flags layer needs WithFlags.
func NewLayeredLoader() *LayeredLoader {
	return &LayeredLoader{disabled: map[Layer]bool{}}
}

func (l *LayeredLoader) EnableLayer(layer Layer)  { delete(l.disabled, layer) }
func (l *LayeredLoader) DisableLayer(layer Layer) { l.disabled[layer] = true }

// WithFlags sets the flag set read by the flags layer.
func (l *LayeredLoader) WithFlags(flags *pflag.FlagSet) *LayeredLoader {
	l.flags = flags
	return l
}

// Load builds a Config from the enabled layers. A missing file is skipped.
func (l *LayeredLoader) Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if !l.disabled[LayerDefaults] {
		cfg = Default()
	}

	steps := []struct {
		layer Layer
		apply func() error
	}{
		{LayerFile, func() error {
			if configPath == "" {
				return nil
			}
			err := mergeFile(cfg, configPath)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}},
		{LayerEnv, func() error { return LoadFromEnv(cfg) }},
		{LayerFlags, func() error {
			if l.flags == nil {
				return nil
			}
			return applyFlags(cfg, l.flags)
		}},
	}

	for _, step := range steps {
		if l.disabled[step.layer] {
			continue
		}
		if err := step.apply(); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", step.layer, err)
		}
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- resolved config location.
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// flagSetters maps the flag names shared by the commands to config fields.
var flagSetters = map[string]func(cfg *Config, flags *pflag.FlagSet, name string) error{
	"log-level": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Log.Level, err = flags.GetString(name)
		return err
	},
	"engine": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Engine.Kind, err = flags.GetString(name)
		return err
	},
	"cache": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Engine.Cache, err = flags.GetBool(name)
		return err
	},
	"threads": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Engine.Threads, err = flags.GetInt(name)
		return err
	},
	"host": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Server.Host, err = flags.GetString(name)
		return err
	},
	"port": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Server.Port, err = flags.GetInt(name)
		return err
	},
	"token": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Server.Token, err = flags.GetString(name)
		return err
	},
	"rate-limit": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Server.RateLimit, err = flags.GetString(name)
		return err
	},
	"query-timeout": func(cfg *Config, flags *pflag.FlagSet, name string) (err error) {
		cfg.Server.QueryTimeout, err = flags.GetDuration(name)
		return err
	},
}

// applyFlags copies explicitly set flags into cfg. Flags left at their
// default value never override lower layers.
func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	for name, set := range flagSetters {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		if err := set(cfg, flags, name); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}
