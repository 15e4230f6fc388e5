package goinflux

import (
	loggerinternal "github.com/influxwire/goinflux/internal/logger"
	"github.com/influxwire/goinflux/loginterface"
)

type contextKey string

// RequestIDKey is the context key of the request id attached to every HTTP call
const RequestIDKey contextKey = "LOG_REQUEST_ID"

// DatabaseKey is the context key of the database a read or write targets
const DatabaseKey contextKey = "LOG_DATABASE"

func init() {
	SetLogKeys(RequestIDKey, DatabaseKey)
	_ = logger.SetLogLevel("error")
}

// Re-export types from loginterface package
type (
	// ClientLogContextHook is a client-defined hook that can be used to insert log
	// fields based on the Context.
	ClientLogContextHook = loginterface.ClientLogContextHook

	// LogEntry allows for logging using a snapshot of field values.
	LogEntry = loginterface.LogEntry

	// Logger abstracts away the underlying logging mechanism.
	Logger = loginterface.Logger
)

// SetLogKeys sets the context keys to be written to logs when logger.WithContext is used.
// This function is thread-safe and can be called at runtime.
func SetLogKeys(keys ...contextKey) {
	ikeys := make([]interface{}, len(keys))
	for i, k := range keys {
		ikeys[i] = k
	}
	loggerinternal.SetLogKeys(ikeys)
}

// GetLogKeys returns the currently configured context keys.
func GetLogKeys() []contextKey {
	ikeys := loggerinternal.GetLogKeys()
	keys := make([]contextKey, 0, len(ikeys))
	for _, k := range ikeys {
		if ck, ok := k.(contextKey); ok {
			keys = append(keys, ck)
		}
	}
	return keys
}

// RegisterLogContextHook registers a hook that can be used to extract fields
// from the Context and associated with log messages using the provided key.
func RegisterLogContextHook(contextKey string, ctxExtractor ClientLogContextHook) {
	loggerinternal.RegisterLogContextHook(contextKey, ctxExtractor)
}

// logger delegates every call to the internal global logger
var logger Logger = loggerinternal.NewLoggerProxy()

// SetLogger installs a custom logger. It is wrapped with secret masking and level filtering.
func SetLogger(inLogger Logger) error {
	return loggerinternal.SetLogger(inLogger)
}

// GetLogger returns the logger used by goinflux.
func GetLogger() Logger {
	return logger
}

// CreateDefaultLogger creates a new logrus backed logger with default config.
// It does not modify global state; pass the result to SetLogger to install it.
func CreateDefaultLogger() Logger {
	return loggerinternal.CreateDefaultLogger()
}
