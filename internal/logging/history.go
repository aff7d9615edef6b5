package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of framegrab.log.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects entries for display. Zero-valued fields match everything.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level string
	// Since keeps entries at or after this time.
	Since time.Time
	// SessionID keeps entries tagged with this recording session.
	SessionID string
	// Operation keeps entries for one lifecycle operation ("start", "stop", ...).
	Operation string
	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var standardFields = map[string]bool{
	"time":       true,
	"level":      true,
	"msg":        true,
	"session_id": true,
	"operation":  true,
}

// ReadEntries parses the log file at path, sorted by timestamp.
// Lines that are not valid JSON are skipped so a truncated tail does not hide
// the rest of the history.
func ReadEntries(path string) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file at %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return parseEntries(file)
}

func parseEntries(r io.Reader) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(r)

	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// ParseEntry parses one JSON log line.
func ParseEntry(line string) (LogEntry, error) {
	return parseLogEntry(strings.TrimSpace(line))
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}

	if ts, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Timestamp = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.SessionID, _ = raw["session_id"].(string)
	entry.Operation, _ = raw["operation"].(string)

	for k, v := range raw {
		if !standardFields[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries matching every criterion in filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}

	var filtered []LogEntry
	for _, entry := range entries {
		if matchesFilter(entry, filter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Matches reports whether entry passes filter.
func (filter LogFilter) Matches(entry LogEntry) bool {
	return matchesFilter(entry, filter)
}

func matchesFilter(entry LogEntry, filter LogFilter) bool {
	if filter.Level != "" {
		want, wantOk := levelOrder[strings.ToUpper(filter.Level)]
		got, gotOk := levelOrder[entry.Level]
		if wantOk && gotOk && got < want {
			return false
		}
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if filter.SessionID != "" && entry.SessionID != filter.SessionID {
		return false
	}
	if filter.Operation != "" && entry.Operation != filter.Operation {
		return false
	}
	if filter.MessageContains != "" && !strings.Contains(entry.Message, filter.MessageContains) {
		return false
	}
	return true
}

// WriteEntries renders entries to w as "text" (one line per entry) or "json"
// (an indented array).
func WriteEntries(w io.Writer, entries []LogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		if entries == nil {
			entries = []LogEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "", "text":
		for _, entry := range entries {
			if _, err := io.WriteString(w, formatText(entry)+"\n"); err != nil {
				return fmt.Errorf("failed to write log entry: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported log format: %s (supported: text, json)", format)
	}
}

// formatText renders "[TIMESTAMP] LEVEL - MESSAGE (context) {attrs}".
func formatText(entry LogEntry) string {
	parts := []string{
		fmt.Sprintf("[%s]", entry.Timestamp.Local().Format("2006-01-02 15:04:05.000")),
		entry.Level,
		"-",
		entry.Message,
	}

	var context []string
	if entry.SessionID != "" {
		context = append(context, "session="+entry.SessionID)
	}
	if entry.Operation != "" {
		context = append(context, "op="+entry.Operation)
	}
	if len(context) > 0 {
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(context, ", ")))
	}

	if len(entry.Attrs) > 0 {
		attrsJSON, _ := json.Marshal(entry.Attrs)
		parts = append(parts, string(attrsJSON))
	}
	return strings.Join(parts, " ")
}
