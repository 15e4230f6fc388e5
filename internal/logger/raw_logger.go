package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/influxwire/goinflux/ilog"
	"github.com/sirupsen/logrus"
)

// rawLogger implements Logger on top of logrus.
type rawLogger struct {
	inner   *logrus.Logger
	level   ilog.Level
	enabled bool // false when the level is OFF
	mu      sync.Mutex
}

// Compile-time verification that rawLogger implements Logger
var _ Logger = (*rawLogger)(nil)

func newRawLogger() *rawLogger {
	inner := logrus.New()
	inner.SetOutput(os.Stderr)
	inner.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})
	inner.SetLevel(logrus.InfoLevel)
	return &rawLogger{
		inner:   inner,
		level:   ilog.LevelInfo,
		enabled: true,
	}
}

func toLogrusLevel(level ilog.Level) logrus.Level {
	switch {
	case level <= ilog.LevelTrace:
		return logrus.TraceLevel
	case level <= ilog.LevelDebug:
		return logrus.DebugLevel
	case level <= ilog.LevelInfo:
		return logrus.InfoLevel
	case level <= ilog.LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

func (log *rawLogger) isEnabled() bool {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.enabled
}

// SetLogLevel sets the log level
func (log *rawLogger) SetLogLevel(level string) error {
	parsed, err := ilog.ParseLevel(strings.ToUpper(level))
	if err != nil {
		return fmt.Errorf("error while setting log level. %v", err)
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	log.level = parsed
	if parsed == ilog.LevelOff {
		log.enabled = false
		return nil
	}
	log.enabled = true
	log.inner.SetLevel(toLogrusLevel(parsed))
	return nil
}

// GetLogLevel returns the current log level
func (log *rawLogger) GetLogLevel() string {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.level.String()
}

// SetOutput sets the output writer
func (log *rawLogger) SetOutput(output io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.inner.SetOutput(output)
}

func (log *rawLogger) entry() *rawEntry {
	return &rawEntry{inner: logrus.NewEntry(log.inner), parent: log}
}

func (log *rawLogger) Tracef(format string, args ...interface{}) { log.entry().Tracef(format, args...) }
func (log *rawLogger) Debugf(format string, args ...interface{}) { log.entry().Debugf(format, args...) }
func (log *rawLogger) Infof(format string, args ...interface{})  { log.entry().Infof(format, args...) }
func (log *rawLogger) Warnf(format string, args ...interface{})  { log.entry().Warnf(format, args...) }
func (log *rawLogger) Errorf(format string, args ...interface{}) { log.entry().Errorf(format, args...) }

func (log *rawLogger) Debug(msg string) { log.entry().Debug(msg) }
func (log *rawLogger) Info(msg string)  { log.entry().Info(msg) }
func (log *rawLogger) Warn(msg string)  { log.entry().Warn(msg) }
func (log *rawLogger) Error(msg string) { log.entry().Error(msg) }

func (log *rawLogger) WithField(key string, value interface{}) LogEntry {
	return &rawEntry{inner: log.inner.WithField(key, value), parent: log}
}

func (log *rawLogger) WithFields(fields map[string]any) LogEntry {
	return &rawEntry{inner: log.inner.WithFields(logrus.Fields(fields)), parent: log}
}

func (log *rawLogger) WithContext(ctx context.Context) LogEntry {
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return log
	}
	return &rawEntry{inner: log.inner.WithFields(fields), parent: log}
}

// rawEntry implements LogEntry over a logrus entry carrying fields.
type rawEntry struct {
	inner  *logrus.Entry
	parent *rawLogger
}

var _ LogEntry = (*rawEntry)(nil)

func (e *rawEntry) Tracef(format string, args ...interface{}) {
	if e.parent.isEnabled() {
		e.inner.Tracef(format, args...)
	}
}

func (e *rawEntry) Debugf(format string, args ...interface{}) {
	if e.parent.isEnabled() {
		e.inner.Debugf(format, args...)
	}
}

func (e *rawEntry) Infof(format string, args ...interface{}) {
	if e.parent.isEnabled() {
		e.inner.Infof(format, args...)
	}
}

func (e *rawEntry) Warnf(format string, args ...interface{}) {
	if e.parent.isEnabled() {
		e.inner.Warnf(format, args...)
	}
}

func (e *rawEntry) Errorf(format string, args ...interface{}) {
	if e.parent.isEnabled() {
		e.inner.Errorf(format, args...)
	}
}

func (e *rawEntry) Debug(msg string) {
	if e.parent.isEnabled() {
		e.inner.Debug(msg)
	}
}

func (e *rawEntry) Info(msg string) {
	if e.parent.isEnabled() {
		e.inner.Info(msg)
	}
}

func (e *rawEntry) Warn(msg string) {
	if e.parent.isEnabled() {
		e.inner.Warn(msg)
	}
}

func (e *rawEntry) Error(msg string) {
	if e.parent.isEnabled() {
		e.inner.Error(msg)
	}
}
