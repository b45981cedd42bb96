package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Services log with
// *Context variants so request IDs flow through handlers automatically.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
