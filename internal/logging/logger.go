// Package logging builds the zerolog loggers used across dwarfsql.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Config describes a logger. Logs go to stderr by default because stdout
// carries query results.
type Config struct {
	Level  string // trace, debug, info, warn, error or off
	Pretty bool   // console output instead of JSON lines
	Output io.Writer
}

// DefaultConfig logs warnings and above to stderr, pretty when stderr is a
// terminal.
func DefaultConfig() Config {
	return Config{Level: "warn", Pretty: IsTerminal(os.Stderr), Output: os.Stderr}
}

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"off":      zerolog.Disabled,
	"disabled": zerolog.Disabled,
}

// ParseLevel is case-insensitive; unknown names give info.
func ParseLevel(name string) zerolog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// New builds a timestamped logger from cfg.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: !IsTerminal(out)}
	}

	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}
