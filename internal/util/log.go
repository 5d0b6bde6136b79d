package util

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog logger at the requested level, falling back to
// info when the level string is unknown. Pretty enables the human-readable
// console writer for local runs.
func NewLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.New(os.Stdout)
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return out.With().Timestamp().Logger().Level(lvl)
}
