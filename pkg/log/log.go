package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide root logger. Packages never log through it
// directly; they derive scoped children via WithComponent or WithStorage
// so every line carries the fields needed to trace one storage's grain
// traffic and drain activity across the process.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the root logger once at startup. level is spelled the
// way zerolog spells its levels ("debug", "info", "warn", "error");
// anything unrecognized falls back to info. Console output is the default
// for a foreground mgsd; json switches to machine-readable lines for a
// supervised deployment.
func Init(level string, json bool) {
	lv, err := zerolog.ParseLevel(level)
	if err != nil || lv == zerolog.NoLevel {
		lv = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lv)

	if json {
		Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent returns a child logger scoped to a named component
// ("drainer", "cache", "mgsd").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithStorage returns a child logger carrying the storage-name field the
// grain operations log under.
func WithStorage(storage string) zerolog.Logger {
	return Logger.With().Str("storage", storage).Logger()
}
