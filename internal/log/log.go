// Package log configures the process-wide logrus logger.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger.
//
//   - quiet mode:   only WARN and above
//   - normal mode:  INFO and above
//   - verbose mode: DEBUG and above
//
// Quiet wins over verbose. Output goes to stderr because stdout carries the
// MCP stdio stream.
func Setup(verbose, quiet bool, format string) {
	SetupTo(os.Stderr, verbose, quiet, format)
}

// SetupTo is Setup with an explicit writer.
func SetupTo(w io.Writer, verbose, quiet bool, format string) {
	switch {
	case quiet:
		logrus.SetLevel(logrus.WarnLevel)
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	logrus.SetOutput(w)
}
