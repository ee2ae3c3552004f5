// Package logger provides process-wide logging for sercha-ingest.
// Messages go through log/slog. By default only warnings and errors are
// written; --verbose enables debug output and long-running commands
// (serve, mcp) raise the level to info so job events are visible.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatText
	level             = new(slog.LevelVar)
	current           = build()
)

func init() {
	level.Set(slog.LevelWarn)
}

// build creates a logger from the current settings. Callers hold mu.
func build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level. Verbose mode keeps debug regardless.
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		return
	}
	level.Set(l)
}

// SetOutput sets the output writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	current = build()
}

// SetFormat switches between the text and JSON handlers.
func SetFormat(f string) error {
	mu.Lock()
	defer mu.Unlock()
	switch Format(strings.ToLower(f)) {
	case "", FormatText:
		format = FormatText
	case FormatJSON:
		format = FormatJSON
	default:
		return fmt.Errorf("unknown log format %q", f)
	}
	current = build()
	return nil
}

// L returns the underlying structured logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Debug logs when verbose mode is enabled.
func Debug(format string, args ...any) {
	L().Debug(fmt.Sprintf(format, args...))
}

// Section logs a section header at debug level.
func Section(name string) {
	L().Debug("=== " + name + " ===")
}

// Info logs an informational message.
func Info(format string, args ...any) {
	L().Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	L().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error.
func Error(format string, args ...any) {
	L().Error(fmt.Sprintf(format, args...))
}
