// Package errors provides centralized error definitions and error handling utilities
// for framegrab. It defines the capture and recording sentinels, domain error types
// with context wrapping, and classification helpers used by the CLI and the HUD.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - CaptureError: target resolution and screenshot failures
//   - RecorderError: recorder process launch and signaling failures
//   - StateError: failures reading or writing the persisted recording state
//   - ToolError: a required external program is missing
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//   - TimeoutError: an external program did not finish in time
//
// # Usage
//
//	err := errors.NewRecorderError("failed to stop recorder", errors.ErrSignalFailed).WithPID(4242)
//
//	if errors.Is(err, errors.ErrNotRecording) { ... }
//
//	var stateErr *errors.StateError
//	if errors.As(err, &stateErr) { ... }
//
// # Error Classification
//
//   - Severity: Debug, Info, Warning, Error, Critical
//   - UserFacing: errors safe to print as-is
//   - UserMessage: the single-line text the CLI prints
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for expected outcomes such as a cancelled selection.
	SeverityInfo
	// SeverityWarning is for errors that were handled by falling back.
	SeverityWarning
	// SeverityError is for errors that abort the current operation.
	SeverityError
	// SeverityCritical is for errors that leave the system in an unknown state.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Capture-related sentinel errors
var (
	// ErrSelectionAborted indicates the user cancelled the interactive region selection.
	ErrSelectionAborted = New("selection aborted")
	// ErrToolNotFound indicates a required external program is not on PATH.
	ErrToolNotFound = New("tool not found")
	// ErrNoAudioDevice indicates no recordable audio source could be determined.
	ErrNoAudioDevice = New("no audio device found")
)

// Recorder-related sentinel errors
var (
	// ErrSpawnFailed indicates the operating system refused to start the recorder.
	ErrSpawnFailed = New("failed to spawn process")
	// ErrSignalFailed indicates a signal could not be delivered to the recorder.
	ErrSignalFailed = New("failed to signal process")
	// ErrProcessGone indicates the target process no longer exists.
	ErrProcessGone = New("process no longer exists")
)

// Lifecycle-related sentinel errors
var (
	// ErrStateCorrupt indicates the persisted recording state cannot be read.
	ErrStateCorrupt = New("recording state is corrupt")
	// ErrAlreadyRecording indicates a recording session already exists.
	ErrAlreadyRecording = New("a recording is already in progress")
	// ErrNotRecording indicates there is no recording session.
	ErrNotRecording = New("no active recording")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// FramegrabError is the base interface for all framegrab errors.
type FramegrabError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity
}

// baseError provides common functionality for all error types.
type baseError struct {
	message  string
	cause    error
	severity Severity
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// severityFor picks a default severity from the sentinel an error wraps.
func severityFor(cause error) Severity {
	switch {
	case cause == nil:
		return SeverityError
	case errors.Is(cause, ErrSelectionAborted):
		return SeverityInfo
	case errors.Is(cause, ErrNoAudioDevice):
		return SeverityWarning
	default:
		return SeverityError
	}
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CaptureError represents errors related to resolving a capture target or
// taking a screenshot.
//
// Example:
//
//	err := errors.NewCaptureError("region selection failed", errors.ErrSelectionAborted).WithMode("region")
//	fmt.Println(err) // "capture error [mode=region]: region selection failed: selection aborted"
type CaptureError struct {
	baseError
	Mode string
	Tool string
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: severityFor(cause),
		},
	}
}

// WithMode adds the capture mode to the error context.
func (e *CaptureError) WithMode(mode string) *CaptureError {
	e.Mode = mode
	return e
}

// WithTool adds the external tool name to the error context.
func (e *CaptureError) WithTool(tool string) *CaptureError {
	e.Tool = tool
	return e
}

// WithSeverity sets the error severity.
func (e *CaptureError) WithSeverity(s Severity) *CaptureError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *CaptureError) Error() string {
	var parts []string
	if e.Mode != "" {
		parts = append(parts, fmt.Sprintf("mode=%s", e.Mode))
	}
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", e.Tool))
	}
	return formatWithPrefix("capture error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *CaptureError) Is(target error) bool {
	if _, ok := target.(*CaptureError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RecorderError represents errors related to the recorder process.
//
// Example:
//
//	err := errors.NewRecorderError("pause failed", errors.ErrSignalFailed).WithPID(4242)
type RecorderError struct {
	baseError
	PID  int
	Tool string
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(message string, cause error) *RecorderError {
	return &RecorderError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: severityFor(cause),
		},
	}
}

// WithPID adds the recorder process id to the error context.
func (e *RecorderError) WithPID(pid int) *RecorderError {
	e.PID = pid
	return e
}

// WithTool adds the recorder binary name to the error context.
func (e *RecorderError) WithTool(tool string) *RecorderError {
	e.Tool = tool
	return e
}

// WithSeverity sets the error severity.
func (e *RecorderError) WithSeverity(s Severity) *RecorderError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *RecorderError) Error() string {
	var parts []string
	if e.PID > 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.PID))
	}
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", e.Tool))
	}
	return formatWithPrefix("recorder error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *RecorderError) Is(target error) bool {
	if _, ok := target.(*RecorderError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StateError represents errors related to the persisted recording state.
//
// Example:
//
//	err := errors.NewStateError("failed to parse state file", errors.ErrStateCorrupt).WithPath(path)
type StateError struct {
	baseError
	Path string
}

// NewStateError creates a new StateError.
func NewStateError(message string, cause error) *StateError {
	return &StateError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: severityFor(cause),
		},
	}
}

// WithPath adds the state file path to the error context.
func (e *StateError) WithPath(path string) *StateError {
	e.Path = path
	return e
}

// WithSeverity sets the error severity.
func (e *StateError) WithSeverity(s Severity) *StateError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *StateError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return formatWithPrefix("state error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *StateError) Is(target error) bool {
	if _, ok := target.(*StateError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ToolError reports a required external program that is not installed.
// It always matches ErrToolNotFound.
//
// Example:
//
//	err := errors.NewToolError("slurp", exec.ErrNotFound)
//	fmt.Println(err) // "required tool 'slurp' not found in PATH: executable file not found in $PATH"
type ToolError struct {
	baseError
	Tool string
}

// NewToolError creates a new ToolError for the named program.
func NewToolError(tool string, cause error) *ToolError {
	return &ToolError{
		baseError: baseError{
			message:  fmt.Sprintf("required tool '%s' not found in PATH", tool),
			cause:    cause,
			severity: SeverityError,
		},
		Tool: tool,
	}
}

// Error returns the formatted error message.
func (e *ToolError) Error() string {
	return e.baseError.Error()
}

// Is checks if this error matches the target.
func (e *ToolError) Is(target error) bool {
	if _, ok := target.(*ToolError); ok {
		return true
	}
	if target == ErrToolNotFound {
		return true
	}
	return e.baseError.Is(target)
}

func formatWithPrefix(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("region must have a positive size").WithField("geometry").WithValue("0,0 0x0")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatWithPrefix("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an external program that did not finish in time.
//
// Example:
//
//	err := errors.NewTimeoutError("niri msg --json focused-output", 3*time.Second)
//	fmt.Println(err) // "timeout error: niri msg --json focused-output (timeout: 3s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:  operation,
			severity: SeverityWarning,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement FramegrabError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var fgErr FramegrabError
	if As(err, &fgErr) {
		return fgErr.Severity()
	}

	return severityFor(err)
}

// UserMessage renders err as the single line printed by the CLI.
// Lifecycle preconditions get an actionable hint naming the command to run.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	switch {
	case Is(err, ErrAlreadyRecording):
		msg += " (run 'framegrab record stop' first)"
	case Is(err, ErrNotRecording):
		msg += " (start one with 'framegrab record start')"
	case Is(err, ErrStateCorrupt):
		var stateErr *StateError
		if As(err, &stateErr) && stateErr.Path != "" {
			msg += fmt.Sprintf(" (inspect or remove %s manually)", stateErr.Path)
		} else {
			msg += " (inspect or remove the state file manually)"
		}
	}

	return strings.Join(strings.Fields(msg), " ")
}
