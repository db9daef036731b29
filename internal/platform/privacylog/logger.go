package privacylog

import (
	"io"
	"log/slog"
	"os"
)

// NewJSONLogger returns a JSON logger writing to w through a SanitizingHandler.
func NewJSONLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(WrapHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
