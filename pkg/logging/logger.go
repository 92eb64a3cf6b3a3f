package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with application-specific functionality
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger on stdout with the specified level
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Tests pass a buffer to
// assert on emitted fields.
func NewWithWriter(level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts))}
}

// ParseLevel maps LOG_LEVEL values onto slog levels; unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	if l == nil {
		l = Default()
	}
	return &Logger{Logger: l.Logger.With("component", name)}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info")
}
