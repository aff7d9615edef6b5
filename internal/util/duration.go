package util

import (
	"fmt"
	"time"
)

// FormatClock renders d as HH:MM:SS, truncating to whole seconds.
// Negative durations render as 00:00:00. Hours are not wrapped, so a
// 100 hour recording renders as 100:00:00.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
