// Package logging provides a zerolog logger constructor, in place of the
// teacher's bespoke *log.Logger prefix scheme. cmd/streamer and
// cmd/consumer do not use it; each builds its own logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. component is attached to every line
// so multiplexed stdout (streamer + consumer in the same container, or in
// tests) stays attributable.
func New(component string, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Nop returns a disabled logger, used as a safe zero-value in tests that
// don't care about log output.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
