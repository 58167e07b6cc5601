package loraduplex

import "fmt"

// Logger receives scheduler and driver events as preformatted strings so that
// TinyGo targets can implement it on top of a bare serial port.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

var globalLogger Logger = nopLogger{}

// SetLogger replaces the package logger. A nil logger silences output.
func SetLogger(l Logger) {
	if l == nil {
		globalLogger = nopLogger{}
		return
	}
	globalLogger = l
}

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(string) {}

func logDebugf(format string, args ...any) { globalLogger.Debug(fmt.Sprintf(format, args...)) }
func logInfof(format string, args ...any)  { globalLogger.Info(fmt.Sprintf(format, args...)) }
func logWarnf(format string, args ...any)  { globalLogger.Warn(fmt.Sprintf(format, args...)) }
func logErrorf(format string, args ...any) { globalLogger.Error(fmt.Sprintf(format, args...)) }
