// Package util holds small formatting helpers for terminal output.
package util

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis ends text that Truncate shortened.
const Ellipsis = "…"

// Truncate shortens s to at most width terminal columns, ending it with
// Ellipsis when anything was cut. Escape sequences take no columns and wide
// runes take two.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, Ellipsis)
}

// PadRight truncates s to width columns and pads it with spaces to exactly
// width columns.
func PadRight(s string, width int) string {
	s = Truncate(s, width)
	if gap := width - ansi.StringWidth(s); gap > 0 {
		s += strings.Repeat(" ", gap)
	}
	return s
}
