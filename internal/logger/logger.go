// Package logger provides a small wrapper around slog for structured logging.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the global logger instance.
var Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// SetOutput redirects log output, typically to a file while the TUI owns
// the terminal.
func SetOutput(w io.Writer) {
	Logger = slog.New(slog.NewTextHandler(w, nil))
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
