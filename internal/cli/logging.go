package cli

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// NewLogger returns a structured logger writing to w at the given level
// ("debug", "info", "warn" or "error"). Unknown levels fall back to warn.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "rubies",
		Level:  lvl,
	})
	return slog.New(handler)
}
