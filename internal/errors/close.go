// Package errors holds the error helpers shared by the dwarfsql commands.
package errors

import (
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes c and logs a failure under msg instead of dropping it.
// It is meant for defer statements; a nil c is ignored.
func DeferClose(logger zerolog.Logger, c io.Closer, msg string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}
