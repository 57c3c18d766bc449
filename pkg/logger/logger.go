package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const BritishTimeFormat = "02.01.2006 15:04:05"

// Config is the logging part of every binary's configuration.
// LogHumanFriendly selects the text handler over JSON.
type Config struct {
	LogLevel         string
	LogHumanFriendly bool
}

// ParseLevel converts "debug", "info", "warn" or "error" (any case, "warning"
// accepted) to a slog.Level. Anything else is Info.
func ParseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewFromConfig creates a logger writing to stdout
func NewFromConfig(cfg Config) *slog.Logger {
	return New(os.Stdout, cfg)
}

// New creates a logger writing to w
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.LogLevel),
		ReplaceAttr: britishTime,
	}

	if cfg.LogHumanFriendly {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func britishTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(BritishTimeFormat))
	}
	return a
}
