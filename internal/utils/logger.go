package utils

import (
	"log/slog"
	"os"
)

// Logger is the observability interface injected into every component.
// A nil Logger accepted by a constructor means Default().
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type slogLogger struct {
	l *slog.Logger
}

const prefix = "[sigseek] "

// NewLogger wraps an slog handler writing to stderr at the given level.
func NewLogger(level slog.Level) Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// Default returns an info-level stderr logger.
func Default() Logger {
	return NewLogger(slog.LevelInfo)
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(prefix+msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(prefix+msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(prefix+msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(prefix+msg, args...) }

// Discard drops everything. Used by tests that exercise failure paths.
type Discard struct{}

func (Discard) Debug(string, ...any) {}
func (Discard) Info(string, ...any)  {}
func (Discard) Warn(string, ...any)  {}
func (Discard) Error(string, ...any) {}

// Or returns l if non-nil, otherwise the default logger.
func Or(l Logger) Logger {
	if l != nil {
		return l
	}
	return Default()
}
