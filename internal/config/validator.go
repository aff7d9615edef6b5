package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "timeouts.query_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// extensionRegex restricts recording extensions to a plain file suffix
var extensionRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// reservedRecorderArgs are flags framegrab sets itself; passing them again
// through recording.extra_args would make the recorder see conflicting targets.
var reservedRecorderArgs = []string{"-f", "--file", "-g", "--geometry", "-o", "--output", "-a", "--audio", "-y", "--overwrite"}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTools()...)
	errors = append(errors, c.validateRecording()...)
	errors = append(errors, c.validateAudio()...)
	errors = append(errors, c.validateTimeouts()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateHUD()...)

	return errors
}

// validateTools validates the ToolsConfig
func (c *Config) validateTools() []ValidationError {
	var errors []ValidationError

	tools := []struct {
		field string
		value string
	}{
		{"tools.selector", c.Tools.Selector},
		{"tools.screenshot", c.Tools.Screenshot},
		{"tools.recorder", c.Tools.Recorder},
		{"tools.compositor", c.Tools.Compositor},
		{"tools.audio", c.Tools.Audio},
		{"tools.clipboard", c.Tools.Clipboard},
	}

	for _, tool := range tools {
		if strings.TrimSpace(tool.value) == "" {
			errors = append(errors, ValidationError{
				Field:   tool.field,
				Value:   tool.value,
				Message: "must name a program",
			})
			continue
		}
		if strings.ContainsAny(tool.value, " \t\n\x00") {
			errors = append(errors, ValidationError{
				Field:   tool.field,
				Value:   tool.value,
				Message: "must be a single program name without arguments",
			})
		}
	}

	return errors
}

// validateRecording validates the RecordingConfig
func (c *Config) validateRecording() []ValidationError {
	var errors []ValidationError

	if !extensionRegex.MatchString(c.Recording.Extension) {
		errors = append(errors, ValidationError{
			Field:   "recording.extension",
			Value:   c.Recording.Extension,
			Message: "must be alphanumeric without a leading dot",
		})
	}

	for i, arg := range c.Recording.ExtraArgs {
		name, _, _ := strings.Cut(arg, "=")
		if slices.Contains(reservedRecorderArgs, name) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("recording.extra_args[%d]", i),
				Value:   arg,
				Message: "is set by framegrab and cannot be overridden",
			})
		}
	}

	return errors
}

// validateAudio validates the AudioConfig
func (c *Config) validateAudio() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidAudioPolicies(), c.Audio.Policy) {
		errors = append(errors, ValidationError{
			Field:   "audio.policy",
			Value:   c.Audio.Policy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidAudioPolicies(), ", ")),
		})
	}

	return errors
}

// validateTimeouts validates the TimeoutsConfig
func (c *Config) validateTimeouts() []ValidationError {
	var errors []ValidationError

	if c.Timeouts.QueryMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "timeouts.query_ms",
			Value:   c.Timeouts.QueryMs,
			Message: "must be positive",
		})
	}

	if c.Timeouts.SelectionMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "timeouts.selection_ms",
			Value:   c.Timeouts.SelectionMs,
			Message: "must be non-negative",
		})
	}

	if c.Timeouts.StopGraceMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "timeouts.stop_grace_ms",
			Value:   c.Timeouts.StopGraceMs,
			Message: "must be positive",
		})
	}

	// Polling slower than the grace window would never observe a graceful exit
	if c.Timeouts.StopPollMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "timeouts.stop_poll_ms",
			Value:   c.Timeouts.StopPollMs,
			Message: "must be positive",
		})
	} else if c.Timeouts.StopGraceMs > 0 && c.Timeouts.StopPollMs > c.Timeouts.StopGraceMs {
		errors = append(errors, ValidationError{
			Field:   "timeouts.stop_poll_ms",
			Value:   c.Timeouts.StopPollMs,
			Message: fmt.Sprintf("must not exceed timeouts.stop_grace_ms (%d)", c.Timeouts.StopGraceMs),
		})
	}

	if c.Timeouts.StartupCheckMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "timeouts.startup_check_ms",
			Value:   c.Timeouts.StartupCheckMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	paths := []struct {
		field string
		value string
	}{
		{"paths.output_dir", c.Paths.OutputDir},
		{"paths.state_dir", c.Paths.StateDir},
	}

	const maxPathLength = 4096
	for _, p := range paths {
		if p.value == "" {
			continue
		}
		if strings.ContainsRune(p.value, '\x00') {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "path contains invalid null character",
			})
		}
		if len(p.value) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateHUD validates the HUDConfig
func (c *Config) validateHUD() []ValidationError {
	var errors []ValidationError

	const minBlinkMs = 50
	if c.HUD.BlinkIntervalMs < minBlinkMs {
		errors = append(errors, ValidationError{
			Field:   "hud.blink_interval_ms",
			Value:   c.HUD.BlinkIntervalMs,
			Message: fmt.Sprintf("must be at least %d", minBlinkMs),
		})
	}

	return errors
}
