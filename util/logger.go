// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// ANSI colours for the level tag when writing to a terminal.
var levelColors = map[string]string{
	"ERR": "\x1b[31m",
	"WRN": "\x1b[33m",
	"INF": "\x1b[36m",
	"VRB": "\x1b[37m",
	"DBG": "\x1b[90m",
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  It is safe for concurrent use: the server's
// worker goroutine and the caller's goroutine share one Logger.
type Logger struct {
	level      LogLevel
	output     io.Writer
	mu         *sync.Mutex // shared with loggers derived by With
	timestamps bool // if true, prepend wall-clock timestamps
	color      bool // if true, colour the level tag
	prefix     string
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).  Level tags
// are coloured when stderr is a terminal.
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		mu:         &sync.Mutex{},
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
		color:      term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// With returns a Logger sharing l's settings whose messages start with
// "name: ".
func (l *Logger) With(name string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		level:      l.level,
		output:     l.output,
		mu:         l.mu,
		timestamps: l.timestamps,
		color:      l.color,
		prefix:     l.prefix + name + ": ",
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on }

// SetColor enables or disables coloured level tags.
func (l *Logger) SetColor(on bool) { l.color = on }

// SetOutput overrides the output writer (default: os.Stderr).  Colour
// is turned off; call SetColor afterwards to force it.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.color = false
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write("VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write("DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERR", format, args...)
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := l.prefix + fmt.Sprintf(format, args...)
	tag := "[" + level + "]"
	if l.color {
		tag = levelColors[level] + tag + "\x1b[0m"
	}
	if l.timestamps {
		ts := time.Now().Format("15:04:05.000")
		fmt.Fprintf(l.output, "%s %s %s\n", ts, tag, msg)
	} else {
		fmt.Fprintf(l.output, "%s %s\n", tag, msg)
	}
}
