//go:build !tinygo

package loraduplex

import (
	"log/slog"
)

func init() {
	globalLogger = &stdLogger{l: slog.Default().With("component", "radio")}
}

// stdLogger is a default logger that forwards to log/slog.
type stdLogger struct {
	l *slog.Logger
}

func (l *stdLogger) Debug(msg string) { l.l.Debug(msg) }
func (l *stdLogger) Info(msg string)  { l.l.Info(msg) }
func (l *stdLogger) Warn(msg string)  { l.l.Warn(msg) }
func (l *stdLogger) Error(msg string) { l.l.Error(msg) }
