// Package debug provides category-based debug logging for helo.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): controlled via HELO_DEBUG env or config
//   - Levels (HOW MUCH detail): controlled via HELO_LOG_LEVEL env or config
//
// Usage:
//
//	debug.Log("transport", "request dispatched", "method", req.Method)
//	if debug.Enabled("streaming") { /* expensive formatting */ }
//
// Categories: transport, streaming, auth, config, metrics, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
const LevelTrace = slog.LevelDebug - 4

const (
	envCategories = "HELO_DEBUG"
	envLevel      = "HELO_LOG_LEVEL"
)

// categories holds the set of enabled debug categories. It is swapped
// atomically so Init may run while requests are in flight.
var categories atomic.Pointer[map[string]bool]

func init() {
	setCategories(parseCategories(os.Getenv(envCategories)))
}

// Init configures the debug system and installs a text logger on w as the
// slog default. Environment overrides the config values. The installed
// logger is returned.
func Init(w io.Writer, configCategories, configLevel string) *slog.Logger {
	cats := os.Getenv(envCategories)
	if cats == "" {
		cats = configCategories
	}
	setCategories(parseCategories(cats))

	level := os.Getenv(envLevel)
	if level == "" {
		level = configLevel
	}
	if w == nil {
		w = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
// Only visible when HELO_LOG_LEVEL=TRACE.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the list of enabled categories.
func Categories() []string {
	var result []string
	for k := range *categories.Load() {
		result = append(result, k)
	}
	return result
}

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func setCategories(m map[string]bool) {
	categories.Store(&m)
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
