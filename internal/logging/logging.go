// Package logging sets up diagnostic logging and the gateway event log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel converts a --log-level value.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Setup installs the default logger. Diagnostics go to w (stderr in
// practice): stdout carries the monitoring status line.
func Setup(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// EventLog records gateway state transitions in a rotating file.
type EventLog struct {
	*slog.Logger
	closer io.Closer
}

// OpenEventLog opens the event log at path. An empty path discards events.
func OpenEventLog(path string) (*EventLog, error) {
	if path == "" {
		return &EventLog{Logger: slog.New(slog.DiscardHandler)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     90, // days
		Compress:   true,
	}
	return &EventLog{
		Logger: slog.New(slog.NewTextHandler(w, nil)),
		closer: w,
	}, nil
}

// Close flushes and closes the underlying file.
func (e *EventLog) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
