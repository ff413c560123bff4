package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is what components accept; *logrus.Logger and *logrus.Entry both satisfy it.
type Logger = logrus.FieldLogger

// Fields represents structured logging fields
type Fields = logrus.Fields

// NewLogger creates a JSON logger at the given level ("debug", "info", "warn", "error").
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// NewLoggerWithService creates a logger whose entries carry a service field.
func NewLoggerWithService(serviceName, level string) Logger {
	return NewLogger(level).WithField("service", serviceName)
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	logger := logrus.New()
	logger.SetOutput(discard{})
	return logger
}

func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
