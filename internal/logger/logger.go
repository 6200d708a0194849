// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON slog.Logger writing to w.
func Setup(w io.Writer, production bool) *slog.Logger {
	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// SetupDefault installs a JSON logger as the slog default. A nil writer means stdout.
func SetupDefault(w io.Writer, production bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := Setup(w, production)
	slog.SetDefault(l)
	return l
}
