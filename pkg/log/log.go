package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance used by any component that
// does not have its own injected zerolog.Logger.
var Logger zerolog.Logger

// Level represents a logging verbosity level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Components built without an
// explicit logger (managers constructed with a zero-value
// zerolog.Logger) fall back to this one.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// Sane default so a caller that never calls Init still gets
	// readable output instead of a zero-value no-op logger.
	Init(Config{Level: InfoLevel})
}

// WithManager creates a child logger tagged with a manager name.
func WithManager(name string) zerolog.Logger {
	return Logger.With().Str("manager", name).Logger()
}

// WithTier creates a child logger tagged with a Multi-Level tier name.
func WithTier(name string) zerolog.Logger {
	return Logger.With().Str("tier", name).Logger()
}

// WithKey creates a child logger tagged with a cache key.
func WithKey(key string) zerolog.Logger {
	return Logger.With().Str("key", key).Logger()
}
