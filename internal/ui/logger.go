package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger provides color-coded leveled logging on stderr
type Logger struct {
	Verbose bool
	Quiet   bool
	NoColor bool
	Out     io.Writer

	info, success, warning, errs, debug *color.Color
}

// NewLogger creates a new logger
func NewLogger(verbose, quiet, noColor bool) *Logger {
	l := &Logger{
		Verbose: verbose,
		Quiet:   quiet,
		NoColor: noColor,
		Out:     os.Stderr,
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		errs:    color.New(color.FgRed),
		debug:   color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{l.info, l.success, l.warning, l.errs, l.debug} {
			c.DisableColor()
		}
	}
	return l
}

// NewDiscardLogger returns a logger that writes nowhere
func NewDiscardLogger() *Logger {
	l := NewLogger(true, false, true)
	l.Out = io.Discard
	return l
}

func (l *Logger) print(c *color.Color, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.Out, c.Sprint(prefix+msg))
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Quiet {
		return
	}
	l.print(l.info, "[INFO] ", format, args...)
}

// Success logs a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.Quiet {
		return
	}
	l.print(l.success, "[SUCCESS] ", format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.print(l.warning, "[WARNING] ", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.print(l.errs, "[ERROR] ", format, args...)
}

// Debug logs a debug message (only if verbose is enabled)
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.Verbose {
		return
	}
	l.print(l.debug, "[DEBUG] ", format, args...)
}
