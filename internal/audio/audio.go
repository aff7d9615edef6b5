// Package audio finds the audio source a recording should capture: the
// monitor of the default output sink, so the recording contains what the
// user hears.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/logging"
)

// MonitorSuffix is appended to a sink name to get its monitor source.
const MonitorSuffix = ".monitor"

// Resolution is the outcome of a device lookup.
type Resolution struct {
	// Device is the source to pass to the recorder. Empty means none was found.
	Device string
	// Diagnostic explains why Device is empty.
	Diagnostic error
}

// Found reports whether a device was resolved.
func (r Resolution) Found() bool { return r.Device != "" }

// Resolver queries the audio server for the default sink.
type Resolver struct {
	runner command.Runner
	tool   string
	logger *logging.Logger
}

// NewResolver creates a Resolver that asks tool (pactl-compatible) for the default sink.
func NewResolver(runner command.Runner, tool string, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Resolver{runner: runner, tool: tool, logger: logger}
}

// Resolve returns the monitor source of the default sink.
//
// A missing tool, a failed or slow query, or an empty answer all yield
// errors.ErrNoAudioDevice wrapping the cause; the returned Resolution
// carries the same error as its Diagnostic.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	res, err := r.runner.Run(ctx, r.tool, "get-default-sink")
	if err != nil {
		return r.notFound("default sink query failed", err)
	}

	sink := strings.TrimSpace(string(res.Stdout))
	if sink == "" {
		return r.notFound("audio server reported no default sink", nil)
	}

	device := sink + MonitorSuffix
	r.logger.Debug("resolved audio device", "device", device)
	return Resolution{Device: device}, nil
}

func (r *Resolver) notFound(message string, cause error) (Resolution, error) {
	var err error = fgerrors.ErrNoAudioDevice
	if cause != nil {
		err = fmt.Errorf("%w: %w", fgerrors.ErrNoAudioDevice, cause)
	}
	capErr := fgerrors.NewCaptureError(message, err).WithTool(r.tool).WithSeverity(fgerrors.SeverityWarning)
	r.logger.Warn("no audio device", "tool", r.tool, "error", capErr.Error())
	return Resolution{Diagnostic: capErr}, capErr
}
