package logger

import (
	"log/slog"
	"os"
)

// New builds the process logger: JSON at info level in prod, text at
// debug level everywhere else.
func New(env string) *slog.Logger {
	var h slog.Handler
	switch env {
	case "prod", "production":
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(h)
}
