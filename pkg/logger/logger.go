package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ParseLevel accepts slog level names ("debug", "INFO", "warn+2", ...) and
// falls back to info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		if s != "" {
			fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", s)
		}
		return slog.LevelInfo
	}
	return lvl
}

func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func NewJSON(level slog.Level) *slog.Logger {
	return New(os.Stdout, level)
}
