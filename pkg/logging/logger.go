package logging

import (
	"github.com/sirupsen/logrus"

	"rawi/pkg/config"
)

// Logger is the logging handle passed between packages. It is a logrus
// entry so that fields attached at construction time (service name,
// request id) survive on every line.
type Logger = *logrus.Entry

// Fields represents structured logging fields
type Fields = logrus.Fields

// Level represents a log level
type Level = logrus.Level

// NewLogger creates a new configured logger instance
func NewLogger() Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(config.GetLogLevel())
	return logrus.NewEntry(base)
}

// NewLoggerWithService creates a logger with a service field attached to
// every entry.
func NewLoggerWithService(serviceName string) Logger {
	return NewLogger().WithField("service", serviceName)
}

// SetLevel adjusts the level on the underlying logger. Useful after the
// environment has been loaded, since NewLogger reads LOG_LEVEL before any
// .env file is applied.
func SetLevel(logger Logger, level Level) {
	if logger != nil && logger.Logger != nil {
		logger.Logger.SetLevel(level)
	}
}
