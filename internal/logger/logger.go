// Package logger holds the process-wide logr.Logger. Diagnostics go to
// stderr so they never mix with the conversation on stdout.
package logger

import (
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

var l = New(os.Stderr)

// New builds a stdr logger writing to w, configured from LOG_ENABLE and
// LOG_LEVEL.
func New(w io.Writer) logr.Logger {
	if !envBool(envLogEnable, true) {
		return logr.Discard()
	}
	stdr.SetVerbosity(envInt(envLogLevel, 0))
	return stdr.New(log.New(w, "", log.LstdFlags|log.Lshortfile))
}

// ReplaceLogger swaps the process-wide logger, e.g. in tests.
func ReplaceLogger(logger logr.Logger) {
	l = logger
}

// GetLogger returns the process-wide logger named name.
func GetLogger(name string) logr.Logger {
	return l.WithName(name)
}
