// Package logging provides hpcsentry's process-wide log sink: a thin
// wrapper over the standard logger with a verbose gate, grounded on
// the teacher's log.Printf("xtop: ...") convention throughout
// engine/alert.go and engine/daemon.go.
package logging

import (
	"log"
	"os"
)

var verbose = false

// SetVerbose toggles whether Debugf lines are emitted.
func SetVerbose(v bool) {
	verbose = v
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)
}

// Infof logs an always-visible operational line.
func Infof(format string, args ...any) {
	log.Printf("hpcsentry: "+format, args...)
}

// Warnf logs a recoverable problem — a dropped event, a fallback
// strategy kicking in, a transient scheduler failure.
func Warnf(format string, args ...any) {
	log.Printf("hpcsentry: warning: "+format, args...)
}

// Errorf logs a failure the caller is about to return or exit on.
func Errorf(format string, args ...any) {
	log.Printf("hpcsentry: error: "+format, args...)
}

// Debugf logs only when verbose mode is enabled — per-event tracing,
// cache hit/miss detail, and similar high-volume diagnostics.
func Debugf(format string, args ...any) {
	if !verbose {
		return
	}
	log.Printf("hpcsentry: debug: "+format, args...)
}
