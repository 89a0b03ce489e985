package app

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances. When
// logFile is non-empty, log output is additionally copied to a rotated
// file.
func newLogger(levelStr, formatStr string, outW io.Writer, logFile string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	w := outW
	if logFile != "" {
		w = io.MultiWriter(outW, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	default:
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler)
}
