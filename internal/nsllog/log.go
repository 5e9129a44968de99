// Package nsllog provides the plain stderr loggers used across the
// pipeline, one per component, matching the style of
// github.com/google/wuffs's command-line tools (cmd/wuffs/main.go writes
// diagnostics straight to os.Stderr; cmd/puffs-c uses log.Fatalf). No
// structured logging library appears anywhere in the retrieved example
// corpus, so this stays a thin wrapper around the standard library's log
// package rather than reaching for a third-party logger (see DESIGN.md).
package nsllog

import (
	"io"
	"log"
	"os"
)

// New returns a *log.Logger prefixed with name, writing to w.
func New(name string, w io.Writer) *log.Logger {
	return log.New(w, "["+name+"] ", log.LstdFlags)
}

// NewStderr is New(name, os.Stderr), the common case.
func NewStderr(name string) *log.Logger {
	return New(name, os.Stderr)
}
