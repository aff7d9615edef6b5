package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleLog = `{"time":"2026-03-01T10:00:02Z","level":"INFO","msg":"recording started","session_id":"a1","operation":"start","pid":4242}
{"time":"2026-03-01T10:00:00Z","level":"DEBUG","msg":"resolving target","operation":"start"}
not json at all
{"time":"2026-03-01T10:05:00Z","level":"WARN","msg":"no audio device","session_id":"a1","operation":"start"}

{"time":"2026-03-01T11:00:00Z","level":"ERROR","msg":"stop failed","session_id":"b2","operation":"stop"}
`

func writeSampleLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), LogFileName)
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatalf("failed to write sample log: %v", err)
	}
	return path
}

func TestReadEntries(t *testing.T) {
	entries, err := ReadEntries(writeSampleLog(t))
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4 (malformed and blank lines skipped)", len(entries))
	}
	if entries[0].Message != "resolving target" {
		t.Errorf("entries not sorted by time: first = %q", entries[0].Message)
	}

	started := entries[1]
	if started.SessionID != "a1" || started.Operation != "start" {
		t.Errorf("context fields = %q/%q", started.SessionID, started.Operation)
	}
	if started.Attrs["pid"] != float64(4242) {
		t.Errorf("Attrs[pid] = %v", started.Attrs["pid"])
	}
	if _, ok := started.Attrs["msg"]; ok {
		t.Error("standard fields should not be duplicated into Attrs")
	}
}

func TestReadEntries_Missing(t *testing.T) {
	_, err := ReadEntries(filepath.Join(t.TempDir(), "nope.log"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadEntries(missing) = %v, want not-exist", err)
	}
}

func TestFilterLogs(t *testing.T) {
	entries, err := ReadEntries(writeSampleLog(t))
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}

	tests := []struct {
		name   string
		filter LogFilter
		want   int
	}{
		{"empty filter", LogFilter{}, 4},
		{"level warn", LogFilter{Level: "warn"}, 2},
		{"session", LogFilter{SessionID: "a1"}, 2},
		{"operation", LogFilter{Operation: "stop"}, 1},
		{"since", LogFilter{Since: time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)}, 2},
		{"message", LogFilter{MessageContains: "audio"}, 1},
		{"combined", LogFilter{SessionID: "a1", Level: "INFO"}, 2},
		{"no match", LogFilter{SessionID: "zz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(FilterLogs(entries, tt.filter)); got != tt.want {
				t.Errorf("FilterLogs() returned %d entries, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteEntries(t *testing.T) {
	entries, err := ReadEntries(writeSampleLog(t))
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteEntries(&buf, entries, "text"); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("got %d lines, want 4", len(lines))
		}
		if !strings.Contains(lines[1], "INFO - recording started (session=a1, op=start)") {
			t.Errorf("line = %q", lines[1])
		}
		if !strings.Contains(lines[1], `{"pid":4242}`) {
			t.Errorf("line = %q, want attrs", lines[1])
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteEntries(&buf, entries, "JSON"); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		var decoded []LogEntry
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not a JSON array: %v", err)
		}
		if len(decoded) != 4 {
			t.Errorf("decoded %d entries, want 4", len(decoded))
		}
	})

	t.Run("json empty is an array", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteEntries(&buf, nil, "json"); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("got %q, want []", buf.String())
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if err := WriteEntries(&bytes.Buffer{}, entries, "csv"); err == nil {
			t.Error("expected error for csv")
		}
	})
}

func TestParseEntry(t *testing.T) {
	entry, err := ParseEntry(`  {"time":"2026-03-01T10:00:02Z","level":"INFO","msg":"hud opened","operation":"hud"}` + "\n")
	if err != nil {
		t.Fatalf("ParseEntry failed: %v", err)
	}
	if entry.Message != "hud opened" || entry.Operation != "hud" {
		t.Errorf("entry = %+v", entry)
	}
	if !(LogFilter{Operation: "hud"}).Matches(entry) {
		t.Error("filter on operation should match")
	}
	if (LogFilter{Level: "error"}).Matches(entry) {
		t.Error("INFO entry should not pass an error filter")
	}

	if _, err := ParseEntry("not json"); err == nil {
		t.Error("ParseEntry should reject non-JSON lines")
	}
}
