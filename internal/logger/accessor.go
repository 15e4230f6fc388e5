package logger

import (
	"errors"
	"sync"
)

var (
	loggerAccessorMu sync.Mutex
	// globalLogger is the logger every package writes to: levelFiltering -> secretMasking -> raw
	globalLogger Logger
)

// GetLogger returns the global logger for use by internal packages
func GetLogger() Logger {
	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()

	return globalLogger
}

// SetLogger wraps the provided logger with secret masking and level filtering
// and installs it as the global logger. Loggers that are already wrapped are
// unwrapped first so the protection layers never stack.
func SetLogger(provided Logger) error {
	if provided == nil {
		return errors.New("logger cannot be nil")
	}
	if _, isProxy := provided.(*Proxy); isProxy {
		return errors.New("cannot set Proxy as raw logger - it would create infinite recursion")
	}

	raw := provided
	if filtering, ok := raw.(*levelFilteringLogger); ok {
		raw = filtering.inner
	}
	if masking, ok := raw.(*secretMaskingLogger); ok {
		raw = masking.inner
	}

	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()
	globalLogger = newLevelFilteringLogger(newSecretMaskingLogger(raw))
	return nil
}

func init() {
	globalLogger = CreateDefaultLogger()
}

// CreateDefaultLogger creates a new logrus backed logger with the standard protection layers.
func CreateDefaultLogger() Logger {
	return newLevelFilteringLogger(newSecretMaskingLogger(newRawLogger()))
}
