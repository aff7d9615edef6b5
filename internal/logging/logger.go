package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log levels accepted in configuration.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the name of the log file inside the state directory.
const LogFileName = "framegrab.log"

var levels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// Logger writes structured JSON log entries. Child loggers created with
// With, WithSession and WithOperation share the parent's file.
// It is safe for concurrent use.
type Logger struct {
	slog   *slog.Logger
	writer *logFile
}

// NewLogger creates a Logger that appends JSON lines to {dir}/framegrab.log,
// rotating the file according to rotation.
//
// If dir is empty, logs are written to stderr and rotation is ignored.
func NewLogger(dir string, level string, rotation RotationConfig) (*Logger, error) {
	if dir == "" {
		return newLogger(os.Stderr, nil, level), nil
	}

	lf, err := openLogFile(filepath.Join(dir, LogFileName), rotation)
	if err != nil {
		return nil, err
	}
	return newLogger(lf, lf, level), nil
}

func newLogger(w io.Writer, lf *logFile, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levels[ParseLevel(level)]})
	return &Logger{slog: slog.New(handler), writer: lf}
}

// NopLogger returns a Logger that discards all log output.
func NopLogger() *Logger {
	return newLogger(io.Discard, nil, LevelError)
}

// WithSession returns a child Logger tagging every entry with the recording session ID.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With("session_id", sessionID)
}

// WithOperation returns a child Logger tagging every entry with the
// lifecycle operation being performed ("start", "stop", "pause", ...).
func (l *Logger) WithOperation(op string) *Logger {
	return l.With("operation", op)
}

// With returns a child Logger with extra key-value attributes. Pairs whose
// key is not a string are dropped.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	attrs := make([]any, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(key, args[i+1]))
		}
	}
	return &Logger{slog: l.slog.With(attrs...), writer: l.writer}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *Logger) log(level slog.Level, msg string, args []any) {
	l.slog.Log(context.Background(), level, msg, args...)
}

// Path returns the log file path, or "" when logging to stderr.
func (l *Logger) Path() string {
	if l.writer == nil {
		return ""
	}
	return l.writer.path
}

// Close closes the log file. It is a no-op when logging to stderr.
// Closing any child closes the file for all of them.
func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Close()
}

// ParseLevel normalizes a configured level name. Unknown names map to LevelInfo.
func ParseLevel(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if _, ok := levels[level]; ok {
		return level
	}
	return LevelInfo
}
