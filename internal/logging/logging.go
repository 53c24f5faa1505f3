package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New builds the main logger: a text handler on stderr at the level named by
// the CHRONICLE_LOG_LEVEL environment variable (default info).
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

// NewAudit builds the task audit logger writing to <logsDir>/tasks.log. The
// returned closer flushes the file. If the file cannot be opened, auditing
// falls back to the fallback logger rather than failing startup.
func NewAudit(logsDir string, fallback *slog.Logger) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fallback, nopCloser{}, fmt.Errorf("create logs dir: %w", err)
	}
	path := filepath.Join(logsDir, "tasks.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fallback, nopCloser{}, fmt.Errorf("open %s: %w", path, err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return logger, f, nil
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CHRONICLE_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
