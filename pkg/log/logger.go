// Package log is the structured logging layer shared by the signer adapters.
//
// Components receive a Logger explicitly (or pull one from a context with
// FromContext) and never reach for a global. ZapLogger is the production
// implementation, NoopLogger is the default when nothing is configured, and
// SpanLogger mirrors every entry onto an OpenTelemetry span.
//
//	lg := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelDebug})
//	lg = lg.WithName("lit-signer").WithKV("network", "datil-dev")
//	lg.Info("session signatures issued", "nodes", 3)
package log

import "strings"

// Logger is a leveled, key/value logger.
type Logger interface {
	// Debug logs low-level details such as wire payloads.
	Debug(msg string, keysAndValues ...any)
	// Info logs routine state changes.
	Info(msg string, keysAndValues ...any)
	// Warn logs unexpected but recoverable situations.
	Warn(msg string, keysAndValues ...any)
	// Error logs failures that abort the current operation.
	Error(msg string, keysAndValues ...any)
	// Fatal logs an unrecoverable failure; the zap implementation exits.
	Fatal(msg string, keysAndValues ...any)
	// WithKV returns a child logger that attaches key=value to every entry.
	WithKV(key string, value any) Logger
	// GetAllKV returns the persistent key/value pairs of this logger.
	GetAllKV() []any
	// WithName returns a child logger with name appended to the hierarchy.
	WithName(name string) Logger
	// Name returns the logger name.
	Name() string
	// AddCallerSkip returns a logger that skips skip more frames when
	// reporting the caller. Implementations without caller info return
	// themselves.
	AddCallerSkip(skip int) Logger
}

// Level is the minimum severity a logger emits.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// ParseLevel maps a case-insensitive level name to a Level. Unknown names
// fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	case LevelFatal:
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Config selects the output of a ZapLogger. The env tags are read by
// cleanenv in cmd/litsigner.
type Config struct {
	Format string `env:"LOG_FORMAT" env-default:"console"` // console, logfmt or json
	Level  Level  `env:"LOG_LEVEL" env-default:"info"`     // debug, info, warn, error, fatal
	Output string `env:"LOG_OUTPUT" env-default:"stderr"`  // stderr, stdout or a file path
}
