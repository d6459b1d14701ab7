package logging

import (
	"io"
	"log/slog"
)

// NewDiscard returns a logger that drops everything. Tests use it to keep
// output quiet.
func NewDiscard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}
