package testutils

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// SetupTestLogger creates a new slog.Logger that writes to a bytes.Buffer and stdout,
// configured for DEBUG level. Returns the logger and the buffer.
func SetupTestLogger() (*slog.Logger, *bytes.Buffer) {
	var logBuf bytes.Buffer
	// Write to both buffer and stdout for easier debugging during test development
	handler := slog.NewTextHandler(io.MultiWriter(&logBuf, os.Stdout), &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(handler)
	return logger, &logBuf
}

// WriteTempFile writes content to name inside a per-test directory and
// returns the full path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file %s: %v", path, err)
	}
	return path
}
