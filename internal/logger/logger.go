// Package logger builds the logrus loggers handed to the handler and middleware
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a JSON logger writing to stdout at the given level
func New(level string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level)
}

// NewWithOutput creates a JSON logger writing to out.
// An empty or unparsable level falls back to info.
func NewWithOutput(out io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(out)
	configureLogLevel(log, level)
	return log
}

// Discard returns a logger that drops every entry
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func configureLogLevel(log *logrus.Logger, levelStr string) {
	log.SetLevel(logrus.InfoLevel)

	if levelStr == "" {
		// Defaults to InfoLevel set above
		return
	}

	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'", levelStr)
		return
	}

	log.SetLevel(level)
	log.Debugf("Log level set to '%s'", level)
}
