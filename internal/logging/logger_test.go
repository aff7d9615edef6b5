package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLines(t *testing.T, dir string) []map[string]any {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	var out []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in state directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "framegrab")

		logger, err := NewLogger(dir, LevelDebug, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		want := filepath.Join(dir, LogFileName)
		if _, err := os.Stat(want); err != nil {
			t.Errorf("log file was not created at %s", want)
		}
		if logger.Path() != want {
			t.Errorf("Path() = %q, want %q", logger.Path(), want)
		}
	})

	t.Run("writes to stderr when dir is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.writer != nil {
			t.Error("expected no file writer when dir is empty")
		}
		if logger.Path() != "" {
			t.Errorf("Path() = %q, want empty", logger.Path())
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
}

func TestLogLevels(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelDebug, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "key", "value")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message", "key", "value")
	logger.Close()

	entries := readLines(t, dir)
	if len(entries) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(entries))
	}
	wantLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, entry := range entries {
		if entry["level"] != wantLevels[i] {
			t.Errorf("line %d: level = %v, want %s", i, entry["level"], wantLevels[i])
		}
		if entry["key"] != "value" {
			t.Errorf("line %d: key = %v, want value", i, entry["key"])
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "warn", DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	logger.Close()

	if got := len(readLines(t, dir)); got != 2 {
		t.Fatalf("expected WARN and ERROR only, got %d lines", got)
	}
}

func TestContextPropagation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.WithSession("c0ffee").WithOperation("stop").With("pid", 4242).Info("stopped", "forced", false)
	logger.Info("parent unaffected")
	logger.Close()

	entries := readLines(t, dir)
	if len(entries) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entries))
	}
	child := entries[0]
	if child["session_id"] != "c0ffee" {
		t.Errorf("session_id = %v", child["session_id"])
	}
	if child["operation"] != "stop" {
		t.Errorf("operation = %v", child["operation"])
	}
	if child["pid"] != float64(4242) {
		t.Errorf("pid = %v", child["pid"])
	}
	if child["forced"] != false {
		t.Errorf("forced = %v", child["forced"])
	}
	if _, ok := entries[1]["session_id"]; ok {
		t.Error("parent logger picked up child attributes")
	}
}

func TestWithIgnoresNonStringKeys(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if logger.With() != logger {
		t.Error("With() with no args should return the same logger")
	}
	logger.With(42, "dropped", "kept", "yes").Info("msg")
	logger.Close()

	entry := readLines(t, dir)[0]
	if entry["kept"] != "yes" {
		t.Errorf("kept = %v", entry["kept"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.WithSession("x").Debug("debug")
	logger.Error("error")
	if err := logger.Close(); err != nil {
		t.Errorf("NopLogger.Close() returned error: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.expected {
			t.Errorf("ParseLevel(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("test message")

	if err := logger.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}
	if len(readLines(t, dir)) != 1 {
		t.Error("expected the message to be flushed")
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			for j := 0; j < 100; j++ {
				logger.WithSession("s").Info("concurrent write", "goroutine", n, "iteration", j)
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	logger.Close()

	if got := len(readLines(t, dir)); got != 1000 {
		t.Errorf("expected 1000 log lines, got %d", got)
	}
}
