// Package cli holds helpers shared by framegrab's commands: usage error
// classification, exit codes and terminal output styles.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError marks a malformed invocation: an unknown command, a bad flag
// or a wrong argument.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Usagef returns a UsageError with a formatted message.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// Args wraps a positional argument validator so its failures are usage errors.
func Args(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if fgerrors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

// Report writes err to w as a single line.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	style := ErrorStyle
	if fgerrors.GetSeverity(err) <= fgerrors.SeverityInfo {
		style = MutedStyle
	}
	fmt.Fprintln(w, style.Render("framegrab: "+fgerrors.UserMessage(err)))
}

// Output styles
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	HeaderStyle  = lipgloss.NewStyle().Bold(true)
)

// Warnf writes a styled warning line to w.
func Warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, WarnStyle.Render("warning: "+fmt.Sprintf(format, args...)))
}

// IsTerminal reports whether w is a terminal. Only *os.File writers can be.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
