package logger

import (
	"context"
	"io"

	"github.com/influxwire/goinflux/ilog"
)

// levelFilteringLogger wraps any logger and drops messages below the configured
// level before the masking and formatting layers run.
type levelFilteringLogger struct {
	inner Logger
}

var _ Logger = (*levelFilteringLogger)(nil)

func newLevelFilteringLogger(inner Logger) *levelFilteringLogger {
	if inner == nil {
		panic("inner logger cannot be nil")
	}
	return &levelFilteringLogger{inner: inner}
}

// Unwrap returns the inner logger
func (l *levelFilteringLogger) Unwrap() Logger {
	return l.inner
}

func (l *levelFilteringLogger) shouldLog(messageLevel ilog.Level) bool {
	current, err := ilog.ParseLevel(l.inner.GetLogLevel())
	if err != nil {
		current = ilog.LevelInfo
	}
	return current != ilog.LevelOff && messageLevel >= current
}

func (l *levelFilteringLogger) Tracef(format string, args ...interface{}) {
	if l.shouldLog(ilog.LevelTrace) {
		l.inner.Tracef(format, args...)
	}
}

func (l *levelFilteringLogger) Debugf(format string, args ...interface{}) {
	if l.shouldLog(ilog.LevelDebug) {
		l.inner.Debugf(format, args...)
	}
}

func (l *levelFilteringLogger) Infof(format string, args ...interface{}) {
	if l.shouldLog(ilog.LevelInfo) {
		l.inner.Infof(format, args...)
	}
}

func (l *levelFilteringLogger) Warnf(format string, args ...interface{}) {
	if l.shouldLog(ilog.LevelWarn) {
		l.inner.Warnf(format, args...)
	}
}

func (l *levelFilteringLogger) Errorf(format string, args ...interface{}) {
	if l.shouldLog(ilog.LevelError) {
		l.inner.Errorf(format, args...)
	}
}

func (l *levelFilteringLogger) Debug(msg string) {
	if l.shouldLog(ilog.LevelDebug) {
		l.inner.Debug(msg)
	}
}

func (l *levelFilteringLogger) Info(msg string) {
	if l.shouldLog(ilog.LevelInfo) {
		l.inner.Info(msg)
	}
}

func (l *levelFilteringLogger) Warn(msg string) {
	if l.shouldLog(ilog.LevelWarn) {
		l.inner.Warn(msg)
	}
}

func (l *levelFilteringLogger) Error(msg string) {
	if l.shouldLog(ilog.LevelError) {
		l.inner.Error(msg)
	}
}

func (l *levelFilteringLogger) WithField(key string, value interface{}) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithField(key, value)}
}

func (l *levelFilteringLogger) WithFields(fields map[string]any) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithFields(fields)}
}

func (l *levelFilteringLogger) WithContext(ctx context.Context) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithContext(ctx)}
}

func (l *levelFilteringLogger) SetLogLevel(level string) error {
	return l.inner.SetLogLevel(level)
}

func (l *levelFilteringLogger) GetLogLevel() string {
	return l.inner.GetLogLevel()
}

func (l *levelFilteringLogger) SetOutput(output io.Writer) {
	l.inner.SetOutput(output)
}

// levelFilteringEntry applies the parent's level to an entry with fields.
type levelFilteringEntry struct {
	parent *levelFilteringLogger
	inner  LogEntry
}

var _ LogEntry = (*levelFilteringEntry)(nil)

func (e *levelFilteringEntry) Tracef(format string, args ...interface{}) {
	if e.parent.shouldLog(ilog.LevelTrace) {
		e.inner.Tracef(format, args...)
	}
}

func (e *levelFilteringEntry) Debugf(format string, args ...interface{}) {
	if e.parent.shouldLog(ilog.LevelDebug) {
		e.inner.Debugf(format, args...)
	}
}

func (e *levelFilteringEntry) Infof(format string, args ...interface{}) {
	if e.parent.shouldLog(ilog.LevelInfo) {
		e.inner.Infof(format, args...)
	}
}

func (e *levelFilteringEntry) Warnf(format string, args ...interface{}) {
	if e.parent.shouldLog(ilog.LevelWarn) {
		e.inner.Warnf(format, args...)
	}
}

func (e *levelFilteringEntry) Errorf(format string, args ...interface{}) {
	if e.parent.shouldLog(ilog.LevelError) {
		e.inner.Errorf(format, args...)
	}
}

func (e *levelFilteringEntry) Debug(msg string) {
	if e.parent.shouldLog(ilog.LevelDebug) {
		e.inner.Debug(msg)
	}
}

func (e *levelFilteringEntry) Info(msg string) {
	if e.parent.shouldLog(ilog.LevelInfo) {
		e.inner.Info(msg)
	}
}

func (e *levelFilteringEntry) Warn(msg string) {
	if e.parent.shouldLog(ilog.LevelWarn) {
		e.inner.Warn(msg)
	}
}

func (e *levelFilteringEntry) Error(msg string) {
	if e.parent.shouldLog(ilog.LevelError) {
		e.inner.Error(msg)
	}
}
