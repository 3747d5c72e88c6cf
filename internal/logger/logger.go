// Package logger provides a lightweight, per-run logging facility with
// configurable verbosity levels.
//
// Design goals:
//   - Simple API (Errorf, Infof, Debugf, Tracef)
//   - One Logger instance per simulation/study run, not a global
//     verbosity knob — concurrent Monte Carlo workers must not share one
//   - Zero formatting logic at call sites
//   - Leverages Go's standard log package
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	lg := logger.New(logger.Debug, os.Stderr)
//	lg.Infof("event=kernel_start seed=%d", seed)
//	lg.Debugf("event=mark leg=%s mark=%f", legID, mark)
package logger

import (
	"io"
	"log"
)

// Level represents a logging verbosity level. Higher values mean more
// verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

// Logger is a single verbosity-gated sink. Every simulation worker owns
// its own Logger so concurrent Monte Carlo runs never contend on a
// shared verbosity setting or output stream.
type Logger struct {
	level Level
	std   *log.Logger
}

// New constructs a Logger writing to w at the given verbosity.
func New(level Level, w io.Writer) *Logger {
	return &Logger{level: level, std: log.New(w, "", log.LstdFlags)}
}

// SetLevel changes l's verbosity at runtime.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) logf(lvl Level, prefix, format string, args ...any) {
	if l == nil || l.std == nil {
		return
	}
	if l.level >= lvl {
		l.std.Printf(prefix+format, args...)
	}
}

// Errorf logs an error-level message. Use this for failures that require
// attention.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(Error, "[ERROR] ", format, args...)
}

// Infof logs an informational message, in the "event=... k=v" message
// shape used throughout this module.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs debugging information.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs very detailed execution traces. Use this sparingly due to
// high volume.
func (l *Logger) Tracef(format string, args ...any) {
	l.logf(Trace, "[TRACE] ", format, args...)
}

// Nop returns a Logger that discards every message, for callers (tests,
// library use) that don't want kernel log output.
func Nop() *Logger {
	return &Logger{level: Error - 1}
}
