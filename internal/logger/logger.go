// Package logger builds the process-wide slog logger.
package logger

import (
    "io"
    "log/slog"
    "os"
    "strings"
)

// New creates a logger writing to stdout.  Development environments get the
// text handler; everything else gets JSON.
func New(env, level string) *slog.Logger {
    return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env, level string) *slog.Logger {
    lvl := ParseLevel(level)
    opts := &slog.HandlerOptions{
        Level:     lvl,
        AddSource: lvl == slog.LevelDebug,
    }
    var h slog.Handler
    if strings.EqualFold(env, "dev") {
        h = slog.NewTextHandler(w, opts)
    } else {
        h = slog.NewJSONHandler(w, opts)
    }
    return slog.New(h)
}

// ParseLevel converts a LOG_LEVEL value into a slog.Level.  Unknown values
// map to info.
func ParseLevel(s string) slog.Level {
    switch strings.ToLower(strings.TrimSpace(s)) {
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
func Component(l *slog.Logger, name string) *slog.Logger {
    if l == nil {
        l = slog.Default()
    }
    return l.With(slog.String("component", name))
}

// Discard is a logger that drops everything, for tests.
func Discard() *slog.Logger {
    return slog.New(slog.NewTextHandler(io.Discard, nil))
}
