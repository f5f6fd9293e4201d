package logger

import corelogger "github.com/ngochaukiet2005/shuttle-dispatch/core/logger"

// Logger mirrors the core logging port so adapters and callers share
// one name.
type Logger = corelogger.Logger

// NopLogger discards everything. Used as the default in tests.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns the default logger implementation for a component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
