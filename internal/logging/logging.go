// Package logging configures slog for the service and searches its log files.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelCritical sits above error for failures that stop the process.
const LevelCritical = slog.LevelError + 4

// DefaultName is the logger name used when no component is bound.
const DefaultName = "kb-sync"

// Config configures Setup.
type Config struct {
	// Dir receives one app-YYYY-MM-DD.log file per day. Empty disables file output.
	Dir string
	// Level is one of debug, info, warn, error.
	Level string
	// Format applies to stdout: text (line layout) or json.
	// Files always use the line layout so they stay searchable.
	Format string
	Stdout io.Writer
}

// Setup builds the process logger and installs it as the slog default.
// The returned closer flushes and closes the current log file.
func Setup(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}

	var console slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		console = NewLineHandler(out, level)
	case "json":
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	handlers := []slog.Handler{console}
	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		file, err := newDatedFile(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		// Files keep debug detail regardless of the console level.
		handlers = append(handlers, NewLineHandler(file, slog.LevelDebug))
		closer = file
	}

	logger := slog.New(fanout(handlers))
	slog.SetDefault(logger)
	return logger, closer, nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// LevelName renders a level the way log files spell it.
func LevelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	case l < LevelCritical:
		return "ERROR"
	}
	return "CRITICAL"
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
