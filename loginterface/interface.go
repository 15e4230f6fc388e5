// Package loginterface defines the logging interface used by goinflux.
// Implement Logger to route the client's log output into your own logging stack.
package loginterface

import (
	"context"
	"io"
)

// ClientLogContextHook is a client-defined hook that can be used to insert log
// fields based on the Context.
type ClientLogContextHook func(context.Context) string

// LogEntry allows for logging using a snapshot of field values.
type LogEntry interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Logger abstracts away the underlying logging mechanism.
// No implementation-specific logging details should be placed into this interface.
type Logger interface {
	LogEntry
	WithField(key string, value interface{}) LogEntry
	WithFields(fields map[string]any) LogEntry
	WithContext(ctx context.Context) LogEntry

	SetLogLevel(level string) error
	GetLogLevel() string
	SetOutput(output io.Writer)
}
