// Package log builds the logur.Logger every wampc collaborator takes
// at construction: the session state machine, the dispatcher, and both
// transport implementations log through it instead of reaching for
// fmt.Println, so a host application can swap formatters/levels in one
// place.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
	logrusadapter "logur.dev/adapter/logrus"
	"logur.dev/logur"
)

// Config controls the logrus backend behind the logur facade: output
// format ("logfmt" or "json"), level name, and whether ANSI color is
// suppressed.
type Config struct {
	Format  string
	Level   string
	NoColor bool
}

var formatters = map[string]logrus.Formatter{
	"json": &logrus.JSONFormatter{},
}

// NewLogger builds a logur.Logger backed by a freshly configured
// logrus.Logger writing to stdout. An unrecognized Level leaves
// logrus's own default level in place rather than failing.
func NewLogger(cfg Config) logur.Logger {
	backend := logrus.New()
	backend.SetOutput(os.Stdout)
	backend.SetFormatter(textFormatter(cfg.NoColor))

	if f, ok := formatters[cfg.Format]; ok {
		backend.SetFormatter(f)
	}
	if lvl, err := logrus.ParseLevel(cfg.Level); err == nil {
		backend.SetLevel(lvl)
	}

	return logrusadapter.New(backend)
}

func textFormatter(noColor bool) *logrus.TextFormatter {
	return &logrus.TextFormatter{
		DisableColors:             noColor,
		EnvironmentOverrideColors: true,
	}
}

// WithFields attaches structured fields to logger for every subsequent
// call, the way session/dispatch.go tags log lines with requestId,
// procedure, or topic.
func WithFields(logger logur.Logger, fields map[string]interface{}) logur.Logger {
	return logur.WithFields(logger, fields)
}

// DefaultLogger returns a debug-level logfmt logger with fields
// already attached, without going through the viper-backed Config in
// the root package.
func DefaultLogger(fields map[string]interface{}) logur.Logger {
	logger := NewLogger(Config{Format: "logfmt", Level: "debug"})
	if len(fields) > 0 {
		logger = WithFields(logger, fields)
	}
	return logger
}
