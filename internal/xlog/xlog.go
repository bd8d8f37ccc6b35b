// Package xlog is a thin wrapper around the standard library logger that
// tags every line with a component name, following the "[Component] ..."
// convention used throughout this codebase.
package xlog

import (
	"io"
	"log"
	"os"
)

// Logger prefixes every line with a bracketed component tag.
type Logger struct {
	l *log.Logger
}

// New returns a Logger that writes to stderr tagged with component.
func New(component string) *Logger {
	return &Logger{l: log.New(os.Stderr, "["+component+"] ", log.LstdFlags)}
}

// NewWith returns a Logger writing to an arbitrary writer, used by tests
// that want to capture output instead of polluting stderr.
func NewWith(component string, w io.Writer) *Logger {
	return &Logger{l: log.New(w, "["+component+"] ", log.LstdFlags)}
}

// Noop returns a Logger that discards everything, matching the way the
// teacher's tests silence logging.
func Noop() *Logger {
	return &Logger{l: log.New(io.Discard, "", 0)}
}

func (g *Logger) Printf(format string, args ...any) {
	if g == nil || g.l == nil {
		return
	}
	g.l.Printf(format, args...)
}

func (g *Logger) Println(args ...any) {
	if g == nil || g.l == nil {
		return
	}
	g.l.Println(args...)
}
