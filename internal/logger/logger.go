package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a console logger in development and a JSON logger otherwise.
// It also replaces the global zerolog logger.
func New(env string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	var logger zerolog.Logger
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		logger = zerolog.New(out).
			With().
			Timestamp().
			Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = logger
	return logger
}
