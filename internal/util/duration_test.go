package util

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"zero", 0, "00:00:00"},
		{"negative", -5 * time.Second, "00:00:00"},
		{"sub-second truncates", 999 * time.Millisecond, "00:00:00"},
		{"seconds", 42 * time.Second, "00:00:42"},
		{"minutes", 3*time.Minute + 7*time.Second, "00:03:07"},
		{"hours", 2*time.Hour + 5*time.Minute + 9*time.Second, "02:05:09"},
		{"over a day", 100 * time.Hour, "100:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatClock(tt.in); got != tt.want {
				t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
