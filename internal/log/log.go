// Package log initializes the process-wide slog logger and hands out
// component-tagged children. Library packages accept a *slog.Logger in
// their config and default to Component(name); there are no
// package-level Debug/Info helpers.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger *slog.Logger
	level  slog.LevelVar
	once   sync.Once
)

// Init configures the global logger. Valid levels are "debug", "info",
// "warn" and "error"; unknown values mean info. Logs go to stderr so
// interactive output on stdout stays clean. Only the first call wins.
func Init(lvl string) {
	once.Do(func() {
		// Unknown levels fall back to info, the LevelVar zero value.
		_ = level.UnmarshalText([]byte(lvl))
		logger = slog.New(newHandler(os.Stderr))
		slog.SetDefault(logger)
	})
}

// newHandler picks the output format: JSON when GO_ENV=production,
// text otherwise.
func newHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: &level}
	if os.Getenv("GO_ENV") == "production" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// L returns the global logger, initializing it at info level if Init
// was never called.
func L() *slog.Logger {
	Init("info")
	return logger
}

// Component returns a logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}
