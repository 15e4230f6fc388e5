package logger

import (
	"github.com/influxwire/goinflux/loginterface"
)

// Re-export types from loginterface package to avoid circular dependencies
// while maintaining a clean internal API
type (
	LogEntry             = loginterface.LogEntry
	Logger               = loginterface.Logger
	ClientLogContextHook = loginterface.ClientLogContextHook
)

// Unwrapper is implemented by loggers that wrap another logger.
type Unwrapper interface {
	Unwrap() Logger
}
