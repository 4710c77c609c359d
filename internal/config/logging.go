package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// parseSlogLevel accepts either a named level (debug/info/warn/error) or a
// bare integer (slog's own numeric scale, e.g. -4 for debug).
func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}
	return defaultLevel
}

// ConfigureLogger builds the slog.Logger the [logging] table describes. An
// empty File logs to stderr instead of rotating through lumberjack; verbose
// forces debug level regardless of the configured level, matching the
// teacher's -v flag behavior.
func (c Config) ConfigureLogger(verbose bool) *slog.Logger {
	level := parseSlogLevel(c.Logging.Level, slog.LevelInfo)
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if c.Logging.File == "" {
		if c.Logging.Format == "json" {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
	} else {
		sink := &lumberjack.Logger{
			Filename:   c.Logging.File,
			MaxSize:    c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAge:     c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		}
		if c.Logging.Format == "json" {
			handler = slog.NewJSONHandler(sink, opts)
		} else {
			handler = slog.NewTextHandler(sink, opts)
		}
	}

	return slog.New(handler)
}
