package main

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// newLogger builds the root logger. An unknown level falls back to info with a warning.
func newLogger(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("log_level", level).Warn("Unknown log level, using info")
		return log
	}
	log.SetLevel(parsed)
	return log
}
