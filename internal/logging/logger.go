package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes prefixed lines to stderr. Warnings and errors are always
// shown; info needs verbose mode and debug needs debug mode.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level

	debugPrefix string
	infoPrefix  string
	warnPrefix  string
	errPrefix   string
}

// Options controls a new Logger.
type Options struct {
	Verbose bool
	Debug   bool
	NoColor bool
}

// New creates a logger writing to stderr.
func New(opts Options) *Logger {
	colored := !opts.NoColor && term.IsTerminal(int(os.Stderr.Fd()))
	return newLogger(os.Stderr, levelFor(opts), colored)
}

// NewWriter creates an uncolored logger writing to w.
func NewWriter(w io.Writer, opts Options) *Logger {
	return newLogger(w, levelFor(opts), false)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(io.Discard, LevelError+1, false)
}

func levelFor(opts Options) Level {
	switch {
	case opts.Debug:
		return LevelDebug
	case opts.Verbose:
		return LevelInfo
	default:
		return LevelWarn
	}
}

func newLogger(w io.Writer, level Level, colored bool) *Logger {
	l := &Logger{
		out:         w,
		level:       level,
		debugPrefix: "[DEBUG]",
		infoPrefix:  "[INFO]",
		warnPrefix:  "[WARN]",
		errPrefix:   "[ERROR]",
	}
	if colored {
		l.debugPrefix = colorize(color.FgMagenta, l.debugPrefix)
		l.infoPrefix = colorize(color.FgCyan, l.infoPrefix)
		l.warnPrefix = colorize(color.FgYellow, l.warnPrefix)
		l.errPrefix = colorize(color.FgRed, l.errPrefix)
	}
	return l
}

func colorize(attr color.Attribute, s string) string {
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	var prefix string
	switch level {
	case LevelDebug:
		prefix = l.debugPrefix
	case LevelInfo:
		prefix = l.infoPrefix
	case LevelWarn:
		prefix = l.warnPrefix
	default:
		prefix = l.errPrefix
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, prefix+" "+format+"\n", args...)
}
