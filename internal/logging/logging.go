// Package logging sets up the process-wide structured logger: text by
// default, JSON when TABLETD_LOG_JSON is set, matching the level and
// output stream given by configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures the root logger.
type Options struct {
	Level  string // debug, info, warn, error
	JSON   bool
	Output io.Writer // defaults to os.Stderr
}

// New builds a *slog.Logger per opts and installs it as slog's default,
// returning it for callers that want to hold their own reference too.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, hopts)
	} else {
		handler = slog.NewTextHandler(opts.Output, hopts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
