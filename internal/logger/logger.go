// Package logger wraps zerolog with the verbosity conventions used by gh-backport.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// globalLogger is the application-wide logger instance
	globalLogger = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
)

// Config holds logger configuration
type Config struct {
	Verbosity int       // 0=warn, 1=info, 2=debug, 3+=trace
	Quiet     bool      // Only error level logging
	JSON      bool      // Output in JSON format
	NoColor   bool      // Disable colors in console output
	Writer    io.Writer // Output writer (defaults to os.Stderr)
}

// Init initializes the global logger with the provided configuration
func Init(cfg Config) {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	globalLogger = zerolog.New(output(cfg)).
		Level(levelFor(cfg)).
		With().
		Timestamp().
		Logger()

	log.Logger = globalLogger
}

// levelFor maps the quiet flag and verbosity count onto a zerolog level.
// Quiet wins over any verbosity.
func levelFor(cfg Config) zerolog.Level {
	if cfg.Quiet {
		return zerolog.ErrorLevel
	}
	switch {
	case cfg.Verbosity <= 0:
		return zerolog.WarnLevel
	case cfg.Verbosity == 1:
		return zerolog.InfoLevel
	case cfg.Verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func output(cfg Config) io.Writer {
	if cfg.JSON {
		return cfg.Writer
	}
	return zerolog.ConsoleWriter{
		Out:        cfg.Writer,
		TimeFormat: time.Kitchen,
		NoColor:    cfg.NoColor,
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &globalLogger
}

// Trace logs a message at trace level (most verbose)
func Trace() *zerolog.Event {
	return globalLogger.Trace()
}

// Debug logs a message at debug level
func Debug() *zerolog.Event {
	return globalLogger.Debug()
}

// Info logs a message at info level
func Info() *zerolog.Event {
	return globalLogger.Info()
}

// Warn logs a message at warn level
func Warn() *zerolog.Event {
	return globalLogger.Warn()
}

// Error logs a message at error level
func Error() *zerolog.Event {
	return globalLogger.Error()
}

// WithCommand returns a logger with command context
func WithCommand(command string) zerolog.Logger {
	return globalLogger.With().Str("command", command).Logger()
}

// WithPR returns a logger scoped to a pull request number
func WithPR(number int) zerolog.Logger {
	return globalLogger.With().Int("pr", number).Logger()
}

// WithCommit returns a logger scoped to a commit SHA
func WithCommit(sha string) zerolog.Logger {
	return globalLogger.With().Str("sha", ShortSHA(sha)).Logger()
}

// ShortSHA abbreviates a commit SHA for log output.
func ShortSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

// SetLevel changes the global log level
func SetLevel(level zerolog.Level) {
	globalLogger = globalLogger.Level(level)
}

// GetLevel returns the current log level
func GetLevel() zerolog.Level {
	return globalLogger.GetLevel()
}
