package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logg = New(os.Stdout, "info")

// GetLogger returns the process-wide logger.
func GetLogger() *logrus.Logger {
	return logg
}

// SetLevel changes the process-wide log level. Unknown levels keep the current one.
func SetLevel(level string) {
	if parsed, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		logg.SetLevel(parsed)
	}
}

func New(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	if parsed, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		l.SetLevel(parsed)
	}
	return l
}

// Discard returns a logger that writes nowhere, for tests and quiet callers.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if logger == nil || err == nil {
		return
	}
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
