//go:build tinygo

package loraduplex

import (
	"machine"
)

func init() {
	globalLogger = serialLogger{tag: "radio"}
}

// serialLogger writes one line per event to machine.Serial.
type serialLogger struct {
	tag string
}

func (l serialLogger) write(level, msg string) {
	line := make([]byte, 0, len(level)+len(l.tag)+len(msg)+5)
	line = append(line, level...)
	line = append(line, ' ')
	line = append(line, l.tag...)
	line = append(line, ": "...)
	line = append(line, msg...)
	line = append(line, "\r\n"...)
	machine.Serial.Write(line)
}

func (l serialLogger) Debug(msg string) { l.write("D", msg) }
func (l serialLogger) Info(msg string)  { l.write("I", msg) }
func (l serialLogger) Warn(msg string)  { l.write("W", msg) }
func (l serialLogger) Error(msg string) { l.write("E", msg) }
