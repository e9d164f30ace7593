// Package host calls the functions the wasmcall host module provides to Go
// guest libraries.
package host

import (
	"encoding/json"
	"log/slog"

	"github.com/otelwasm/wasmcall/abi"
)

// Raise fails the call in progress with message. The host reports it to the
// caller instead of whatever the function returns.
func Raise(message string) {
	raise([]byte(message))
}

// Log sends a structured message to the host logger.
func Log(level slog.Level, message string, fields map[string]any) {
	b, err := json.Marshal(abi.LogMessage{Level: level, Message: message, Fields: fields})
	if err != nil {
		// Unencodable fields are dropped rather than losing the message.
		b, _ = json.Marshal(abi.LogMessage{Level: level, Message: message})
	}
	log(b)
}

// Logger logs through the host with a fixed set of fields.
type Logger struct {
	fields map[string]any
}

// NewLogger returns a logger attaching fields to every message.
func NewLogger(fields map[string]any) *Logger {
	return &Logger{fields: fields}
}

// With returns a logger with key set to value in addition to l's fields.
func (l *Logger) With(key string, value any) *Logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{fields: fields}
}

func (l *Logger) Debug(msg string) { Log(slog.LevelDebug, msg, l.fields) }
func (l *Logger) Info(msg string)  { Log(slog.LevelInfo, msg, l.fields) }
func (l *Logger) Warn(msg string)  { Log(slog.LevelWarn, msg, l.fields) }
func (l *Logger) Error(msg string) { Log(slog.LevelError, msg, l.fields) }
