package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// New builds the process logger: pretty console output locally, JSON lines
// everywhere else. It also replaces the zerolog global so package-level
// log calls in cmd/ share the same sink.
func New(appEnv, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if appEnv == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	l := zerolog.New(out).Level(ParseLevel(level, appEnv)).With().Timestamp().Logger()
	log.Logger = l
	return l
}

// ParseLevel maps a level name to zerolog, defaulting by environment.
func ParseLevel(level, appEnv string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		return lvl
	}
	if appEnv == "local" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
