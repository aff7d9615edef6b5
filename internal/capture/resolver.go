package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/logging"
)

// Mode is the symbolic target a user asks for.
type Mode string

// Capture modes
const (
	ModeRegion     Mode = "region"
	ModeFullscreen Mode = "fullscreen"
	ModeWindow     Mode = "window"
)

// ParseMode validates a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRegion, ModeFullscreen, ModeWindow:
		return m, nil
	default:
		return "", fgerrors.NewValidationError("unknown capture mode").
			WithField("mode").
			WithValue(s)
	}
}

// Resolution is the outcome of resolving a Mode.
// When FellBack is set, Target is a usable default and Diagnostic says why
// the preferred answer could not be obtained.
type Resolution struct {
	Target     Target
	FellBack   bool
	Diagnostic error
}

// Tools names the programs the Resolver drives.
type Tools struct {
	Selector   string
	Compositor string
}

// Resolver turns modes into concrete targets.
type Resolver struct {
	query       command.Runner
	interactive command.Runner
	tools       Tools
	logger      *logging.Logger
}

// NewResolver creates a Resolver. query bounds compositor queries;
// interactive runs the region selector, which waits on the user.
func NewResolver(query, interactive command.Runner, tools Tools, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if interactive == nil {
		interactive = query
	}
	return &Resolver{
		query:       query,
		interactive: interactive,
		tools:       tools,
		logger:      logger,
	}
}

// Resolve turns a region or fullscreen mode into a Target.
//
// Region selection fails with errors.ErrSelectionAborted when the user
// cancels. Fullscreen never fails: when the focused output cannot be
// determined the default output is returned with FellBack set.
func (r *Resolver) Resolve(ctx context.Context, mode Mode) (Resolution, error) {
	switch mode {
	case ModeRegion:
		region, err := r.SelectRegion(ctx)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Target: region}, nil
	case ModeFullscreen:
		return r.resolveFullscreen(ctx), nil
	default:
		return Resolution{}, fgerrors.NewCaptureError("mode cannot be resolved without more input", fgerrors.ErrInvalidInput).
			WithMode(string(mode))
	}
}

// SelectRegion runs the interactive selector.
func (r *Resolver) SelectRegion(ctx context.Context) (Region, error) {
	res, err := r.interactive.Run(ctx, r.tools.Selector)
	if err != nil {
		var exitErr *command.ExitError
		if fgerrors.As(err, &exitErr) {
			r.logger.Info("region selection aborted", "tool", r.tools.Selector, "code", exitErr.Code)
			return Region{}, fgerrors.NewCaptureError("region selection cancelled", fgerrors.ErrSelectionAborted).
				WithMode(string(ModeRegion)).
				WithTool(r.tools.Selector)
		}
		return Region{}, fgerrors.NewCaptureError("region selection failed", err).
			WithMode(string(ModeRegion)).
			WithTool(r.tools.Selector)
	}

	geometry := strings.TrimSpace(string(res.Stdout))
	if geometry == "" {
		r.logger.Info("region selection returned nothing", "tool", r.tools.Selector)
		return Region{}, fgerrors.NewCaptureError("no region selected", fgerrors.ErrSelectionAborted).
			WithMode(string(ModeRegion)).
			WithTool(r.tools.Selector)
	}

	region, err := ParseGeometry(geometry)
	if err != nil {
		return Region{}, fgerrors.NewCaptureError("selector returned unusable geometry", err).
			WithMode(string(ModeRegion)).
			WithTool(r.tools.Selector)
	}
	return region, nil
}

func (r *Resolver) resolveFullscreen(ctx context.Context) Resolution {
	name, err := r.FocusedOutput(ctx)
	if err != nil {
		r.logger.Warn("focused output unavailable, using default output", "error", err.Error())
		return Resolution{Target: Output{}, FellBack: true, Diagnostic: err}
	}
	return Resolution{Target: Output{Name: name}}
}

// FocusedOutput asks the compositor for the name of the focused output.
func (r *Resolver) FocusedOutput(ctx context.Context) (string, error) {
	res, err := r.query.Run(ctx, r.tools.Compositor, "msg", "--json", "focused-output")
	if err != nil {
		return "", err
	}
	return parseFocusedOutput(res.Stdout)
}

// parseFocusedOutput accepts both the bare output object and the
// {"Ok":{"FocusedOutput":{...}}} reply envelope.
func parseFocusedOutput(data []byte) (string, error) {
	var reply struct {
		Name *string `json:"name"`
		Ok   *struct {
			FocusedOutput *struct {
				Name *string `json:"name"`
			} `json:"FocusedOutput"`
		} `json:"Ok"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &reply); err != nil {
		return "", fmt.Errorf("invalid focused-output reply: %w", err)
	}

	if reply.Name != nil && *reply.Name != "" {
		return *reply.Name, nil
	}
	if reply.Ok != nil && reply.Ok.FocusedOutput != nil &&
		reply.Ok.FocusedOutput.Name != nil && *reply.Ok.FocusedOutput.Name != "" {
		return *reply.Ok.FocusedOutput.Name, nil
	}
	return "", fmt.Errorf("focused-output reply has no output name")
}
