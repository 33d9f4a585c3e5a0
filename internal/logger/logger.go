// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New creates a logger that writes to stderr and, when logFilePath is set,
// to that file as well. Stdout stays free for command output.
func New(logFilePath, logLevelStr, format string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closer := func() {}
	if logFilePath != "" {
		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", logFilePath, err)
		}
		w = io.MultiWriter(os.Stderr, logFile)
		closer = func() { _ = logFile.Close() }
	}

	level, err := ParseLevel(logLevelStr)
	if err != nil {
		closer()
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006/01/02 15:04:05")) // Matches log.LstdFlags format
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		closer()
		return nil, nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to a slog level.
// An empty string is INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
