package config

import (
	"fmt"
	"strings"

	"github.com/coral-mesh/dwarfsql/internal/constants"
)

// ValidationError is a problem with one config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// MultiValidationError collects every problem found by Validate.
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	}

	lines := []string{fmt.Sprintf("validation failed with %d errors:", len(e.Errors))}
	for i := range e.Errors {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, e.Errors[i].Error()))
	}
	return strings.Join(lines, "\n") + "\n"
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true, "off": true, "disabled": true,
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var problems []ValidationError
	add := func(field, msg string) {
		problems = append(problems, ValidationError{Field: field, Message: msg})
	}

	if c.Log.Level != "" && !logLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	switch c.Engine.Kind {
	case constants.EngineDuckDB, constants.EngineSQLite:
	default:
		add("engine.kind", fmt.Sprintf("engine must be '%s' or '%s', got %q",
			constants.EngineDuckDB, constants.EngineSQLite, c.Engine.Kind))
	}

	if c.Engine.Threads < 0 {
		add("engine.threads", "threads must not be negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Server.ReadTimeout <= 0 {
		add("server.read_timeout", "read timeout must be positive")
	}

	if c.Server.QueryTimeout <= 0 {
		add("server.query_timeout", "query timeout must be positive")
	}

	if c.Server.WatchDebounce < 0 {
		add("server.watch_debounce", "watch debounce must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return &MultiValidationError{Errors: problems}
}
