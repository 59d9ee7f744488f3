package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Development gets a console
// writer, everything else JSON lines.
func Init(level, env string) {
	InitWithWriter(level, env, os.Stdout)
}

func InitWithWriter(level, env string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = New(level, env, out)
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// New builds a standalone logger without touching the global one.
func New(level, env string, out io.Writer) zerolog.Logger {
	var w io.Writer = out
	if env == "" || env == "development" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
