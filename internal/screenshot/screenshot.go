// Package screenshot takes still captures of a region, an output or a
// single window, optionally copying the image to the clipboard.
package screenshot

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/Iron-Ham/framegrab/internal/artifact"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/logging"
)

// protocolUnsupported is what grim prints when the compositor lacks the
// toplevel capture protocol needed for -T.
const protocolUnsupported = "compositor doesn't support the screen capture protocol"

// ClipboardMIME is the type offered to the clipboard.
const ClipboardMIME = "image/png"

// Tools names the programs the service drives.
type Tools struct {
	Screenshot string
	Clipboard  string
	Compositor string
}

// Options selects what to capture.
type Options struct {
	Mode capture.Mode
	// WindowID picks the window in ModeWindow. Zero means the focused window.
	WindowID uint64
	// Copy sends the image to the clipboard after saving it.
	Copy bool
}

// Result describes a finished screenshot.
type Result struct {
	// Path is the saved image. Empty when the compositor took the shot
	// itself and stored it in its own screenshot directory.
	Path   string
	Target capture.Target

	// TargetFellBack is set when the focused output was unknown and the
	// default output was captured instead.
	TargetFellBack   bool
	TargetDiagnostic error

	// ViaCompositor is set when grim could not capture the window and the
	// compositor's own screenshot action was used.
	ViaCompositor bool

	Copied bool
	// ClipboardErr explains why Copy was requested but not done.
	ClipboardErr error
}

// Service takes screenshots.
type Service struct {
	runner   command.Runner
	resolver *capture.Resolver
	namer    *artifact.Namer
	tools    Tools
	logger   *logging.Logger
}

// NewService creates a Service.
func NewService(runner command.Runner, resolver *capture.Resolver, namer *artifact.Namer, tools Tools, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Service{
		runner:   runner,
		resolver: resolver,
		namer:    namer,
		tools:    tools,
		logger:   logger.WithOperation("screenshot"),
	}
}

// Capture takes one screenshot.
func (s *Service) Capture(ctx context.Context, opts Options) (Result, error) {
	var (
		res Result
		err error
	)
	switch opts.Mode {
	case capture.ModeRegion, capture.ModeFullscreen:
		res, err = s.captureScreen(ctx, opts.Mode)
	case capture.ModeWindow:
		res, err = s.captureWindow(ctx, opts.WindowID)
	default:
		return Result{}, fgerrors.NewValidationError("unknown capture mode").WithField("mode").WithValue(string(opts.Mode))
	}
	if err != nil {
		return Result{}, err
	}

	if opts.Copy && res.Path != "" {
		if err := s.copyToClipboard(ctx, res.Path); err != nil {
			s.logger.Warn("clipboard copy failed", "path", res.Path, "error", err.Error())
			res.ClipboardErr = err
		} else {
			res.Copied = true
		}
	}

	s.logger.Info("screenshot taken",
		"target", capture.Describe(res.Target),
		"path", res.Path,
		"via_compositor", res.ViaCompositor,
		"copied", res.Copied,
	)
	return res, nil
}

func (s *Service) captureScreen(ctx context.Context, mode capture.Mode) (Result, error) {
	resolution, err := s.resolver.Resolve(ctx, mode)
	if err != nil {
		return Result{}, err
	}

	var args []string
	switch t := resolution.Target.(type) {
	case capture.Region:
		args = append(args, "-g", t.Geometry())
	case capture.Output:
		if !t.IsDefault() {
			args = append(args, "-o", t.Name)
		}
	}

	path, err := s.namer.Path(artifact.KindScreenshot, resolution.Target, artifact.ScreenshotExt)
	if err != nil {
		return Result{}, fgerrors.NewCaptureError("failed to prepare screenshot path", err).WithMode(string(mode))
	}

	if _, err := s.runner.Run(ctx, s.tools.Screenshot, append(args, path)...); err != nil {
		s.discard(path)
		return Result{}, fgerrors.NewCaptureError("screenshot failed", err).
			WithMode(string(mode)).
			WithTool(s.tools.Screenshot)
	}

	return Result{
		Path:             path,
		Target:           resolution.Target,
		TargetFellBack:   resolution.FellBack,
		TargetDiagnostic: resolution.Diagnostic,
	}, nil
}

func (s *Service) captureWindow(ctx context.Context, id uint64) (Result, error) {
	if id == 0 {
		windows, err := s.resolver.ListWindows(ctx)
		if err != nil {
			return Result{}, fgerrors.NewCaptureError("failed to list windows", err).
				WithMode(string(capture.ModeWindow)).
				WithTool(s.tools.Compositor)
		}
		focused, ok := capture.FocusedWindow(windows)
		if !ok {
			return Result{}, fgerrors.NewCaptureError("no focused window", fgerrors.ErrInvalidInput).
				WithMode(string(capture.ModeWindow))
		}
		id = focused.ID
	}
	target := capture.Window{ID: id}

	path, err := s.namer.Path(artifact.KindScreenshot, target, artifact.ScreenshotExt)
	if err != nil {
		return Result{}, fgerrors.NewCaptureError("failed to prepare screenshot path", err).WithMode(string(capture.ModeWindow))
	}

	_, err = s.runner.Run(ctx, s.tools.Screenshot, "-T", strconv.FormatUint(id, 10), path)
	if err == nil {
		return Result{Path: path, Target: target}, nil
	}
	s.discard(path)
	if !windowProtocolUnsupported(err) {
		return Result{}, fgerrors.NewCaptureError("window screenshot failed", err).
			WithMode(string(capture.ModeWindow)).
			WithTool(s.tools.Screenshot)
	}

	s.logger.Warn("window capture protocol unsupported, using compositor screenshot", "window_id", id)
	if err := s.compositorScreenshot(ctx, id); err != nil {
		return Result{}, err
	}
	return Result{Target: target, ViaCompositor: true}, nil
}

// discard removes a reserved path that no screenshot was written to.
func (s *Service) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove unused screenshot path", "path", path, "error", err.Error())
	}
}

// compositorScreenshot focuses the window and asks the compositor to
// screenshot it into its own screenshot directory.
func (s *Service) compositorScreenshot(ctx context.Context, id uint64) error {
	if _, err := s.runner.Run(ctx, s.tools.Compositor, "msg", "action", "focus-window", "--id", strconv.FormatUint(id, 10)); err != nil {
		return fgerrors.NewCaptureError("failed to focus window", err).
			WithMode(string(capture.ModeWindow)).
			WithTool(s.tools.Compositor)
	}
	if _, err := s.runner.Run(ctx, s.tools.Compositor, "msg", "action", "screenshot-window"); err != nil {
		return fgerrors.NewCaptureError("compositor window screenshot failed", err).
			WithMode(string(capture.ModeWindow)).
			WithTool(s.tools.Compositor)
	}
	return nil
}

func (s *Service) copyToClipboard(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.runner.RunWithInput(ctx, f, s.tools.Clipboard, "--type", ClipboardMIME)
	return err
}

func windowProtocolUnsupported(err error) bool {
	var exitErr *command.ExitError
	if fgerrors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, protocolUnsupported) {
		return true
	}
	return strings.Contains(err.Error(), protocolUnsupported)
}
