// Package logger provides the process-wide levelled logger used by the
// solvers, the data sources and the CLI.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Solver iterations are logged at Trace, so a normal run stays quiet while
// `-v 3` shows every bracket and Newton step.
//
// Example usage:
//
//	logger.SetVerbosity(logger.Debug)
//	logger.Infof("solving %d quotes", n)
//	logger.Tracef("newton iter=%d x=%g f=%g", i, x, fx)
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only failures that need attention.
	Info               // Info logs run lifecycle events.
	Debug              // Debug logs per-quote diagnostics.
	Trace              // Trace logs individual solver iterations.
)

var levelNames = map[string]Level{
	"error": Error,
	"info":  Info,
	"debug": Debug,
	"trace": Trace,
}

// current holds the active verbosity level. Solvers run on many goroutines
// and read it on every iteration, hence the atomic.
var current atomic.Int32

func init() {
	current.Store(int32(Info))

	// Logs go to stderr so CLI output (prices, reports) stays pipeable.
	//   2026/01/25 15:42:10 bisection.go:41 [TRACE] bisection iter=3 ...
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during startup, after flags and config are parsed.
func SetVerbosity(v Level) {
	current.Store(int32(v))
}

// Verbosity returns the active level.
func Verbosity() Level {
	return Level(current.Load())
}

// Enabled reports whether messages at l would be written.
func Enabled(l Level) bool {
	return Verbosity() >= l
}

// ParseLevel maps a level name ("error", "info", "debug", "trace") or its
// numeric form to a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if l, ok := levelNames[s]; ok {
		return l, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= int(Error) && n <= int(Trace) {
		return Level(n), nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

// SetOutput redirects log output, e.g. to a buffer in tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func logf(l Level, prefix, format string, args ...any) {
	if Enabled(l) {
		// depth 3: log.Output <- logf <- Errorf/Infof/... <- caller
		_ = log.Output(3, prefix+fmt.Sprintf(format, args...))
	}
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	logf(Error, "[ERROR] ", format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, "[TRACE] ", format, args...)
}
