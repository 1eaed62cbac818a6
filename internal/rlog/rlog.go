// Package rlog provides the structured warning/error logging used
// across ecsruntime's scheduler and sync layers: bark-traced errors for
// contract violations, plain leveled logging for non-fatal warnings
// (replaced registrations, missing DAG targets, unrecognized sync
// names).
package rlog

import (
	"fmt"
	"log"
	"os"

	"github.com/TheBitDrifter/bark"
)

// Logger receives warnings and errors that do not rise to the level of a
// panic. The zero value logs to stderr via the standard log package.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type stdLogger struct {
	l *log.Logger
}

func (s stdLogger) Warnf(format string, args ...any) {
	s.l.Printf("WARN "+format, args...)
}

func (s stdLogger) Errorf(format string, args ...any) {
	s.l.Printf("ERROR "+format, args...)
}

// Default is the package-level logger used when callers don't
// configure their own.
var Default Logger = stdLogger{l: log.New(os.Stderr, "", log.LstdFlags)}

// Trace wraps an error with a call-stack trace using bark, for panics
// on contract violations.
func Trace(err error) error {
	return bark.AddTrace(err)
}

// Tracef formats and traces in one step.
func Tracef(format string, args ...any) error {
	return Trace(fmt.Errorf(format, args...))
}
