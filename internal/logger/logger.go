// Package logger is the process-wide log sink for vigil.
//
// Printf-style helpers trace the chunk, retrieve and generate pipeline and
// are silent unless verbose mode is on; Error always prints. Slog exposes
// the same sink as a structured logger for key/value events.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var prefixes = [...]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
	levelError: "[ERROR] ",
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	slogger           = newSlog(os.Stderr, false)
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	slogger = newSlog(output, v)
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all logging. The default is os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	slogger = newSlog(w, verbose)
}

// Slog returns a structured logger on the current output. Records below
// Warn are dropped unless verbose mode is enabled.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func newSlog(w io.Writer, v bool) *slog.Logger {
	lvl := slog.LevelWarn
	if v {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop timestamps so output stays diffable.
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func logf(l level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < levelError && !verbose {
		return
	}
	fmt.Fprintf(output, prefixes[l]+format+"\n", args...)
}

// Debug prints a trace message in verbose mode.
func Debug(format string, args ...any) { logf(levelDebug, format, args...) }

// Info prints an informational message in verbose mode.
func Info(format string, args ...any) { logf(levelInfo, format, args...) }

// Warn prints a warning in verbose mode.
func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) { logf(levelError, format, args...) }

// Section prints a section header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed starts a stopwatch for stage. The returned func logs the elapsed
// time at debug level.
func Timed(stage string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", stage, time.Since(start).Round(time.Millisecond))
	}
}
