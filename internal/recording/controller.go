// Package recording implements the recording lifecycle shared by the CLI and
// the HUD: Idle, then Recording, which can go to Paused and back, then Idle
// again.
//
// Every call reads the persisted session first, so separate framegrab
// invocations observe and drive the same recording.
package recording

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/framegrab/internal/artifact"
	"github.com/Iron-Ham/framegrab/internal/audio"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/config"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/logging"
	"github.com/Iron-Ham/framegrab/internal/recorder"
	"github.com/Iron-Ham/framegrab/internal/state"
)

// TargetResolver turns a capture mode into a target.
type TargetResolver interface {
	Resolve(ctx context.Context, mode capture.Mode) (capture.Resolution, error)
}

// DeviceResolver finds the default audio source.
type DeviceResolver interface {
	Resolve(ctx context.Context) (audio.Resolution, error)
}

// Recorder launches and signals recorder processes.
type Recorder interface {
	Launch(ctx context.Context, spec recorder.LaunchSpec) (*recorder.Handle, error)
	Pause(pid int) error
	Resume(pid int) error
	Terminate(ctx context.Context, pid int) (recorder.TerminateResult, error)
	Alive(pid int) bool
	Owns(pid int, startTime uint64) bool
	Binary() string
}

// Store persists the session.
type Store interface {
	Read() (*state.Session, error)
	Write(sess *state.Session, overwrite bool) error
	Update(fn func(*state.Session) error) (*state.Session, error)
	Clear() error
	Path() string
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Targets  TargetResolver
	Devices  DeviceResolver
	Recorder Recorder
	Store    Store
	Namer    *artifact.Namer
}

// Settings are the user-configurable parts of a start.
type Settings struct {
	// AudioPolicy is one of the config.AudioPolicy* values.
	AudioPolicy string
	// Extension is the recording container extension.
	Extension string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// Controller runs lifecycle transitions.
type Controller struct {
	deps     Deps
	settings Settings
	logger   *logging.Logger

	now   func() time.Time
	newID func() string
}

// NewController creates a Controller.
func NewController(deps Deps, settings Settings, logger *logging.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if settings.AudioPolicy == "" {
		settings.AudioPolicy = config.AudioPolicyBestEffort
	}
	if settings.Extension == "" {
		settings.Extension = "mkv"
	}
	c := &Controller{
		deps:     deps,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartOptions select what to record.
type StartOptions struct {
	Mode  capture.Mode
	Audio bool
}

// StartReport lists the soft failures a successful start recovered from.
type StartReport struct {
	// TargetFellBack is set when the focused output was unknown and the
	// default output is being recorded.
	TargetFellBack   bool
	TargetDiagnostic error
	// AudioOmitted is set when audio was requested but is not being recorded.
	AudioOmitted bool
	// AudioDiagnostic explains a failed device lookup, whether or not audio
	// was omitted.
	AudioDiagnostic error
}

// Start launches a recording and persists its session.
//
// It fails with errors.ErrAlreadyRecording while any session is stored, and
// with errors.ErrStateCorrupt when the stored session cannot be read. If the
// session cannot be persisted the launched recorder is terminated before
// returning.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (*state.Session, StartReport, error) {
	var report StartReport
	logger := c.logger.WithOperation("start")

	existing, err := c.deps.Store.Read()
	if err != nil {
		return nil, report, err
	}
	if existing != nil {
		if !c.running(existing) {
			logger.Warn("stored session refers to a dead recorder", "pid", existing.PID, "session_id", existing.ID)
		}
		return nil, report, alreadyRecording(existing)
	}

	resolution, err := c.deps.Targets.Resolve(ctx, opts.Mode)
	if err != nil {
		return nil, report, err
	}
	report.TargetFellBack = resolution.FellBack
	report.TargetDiagnostic = resolution.Diagnostic

	spec := recorder.LaunchSpec{Target: resolution.Target}
	if opts.Audio {
		if err := c.resolveAudio(ctx, &spec, &report); err != nil {
			return nil, report, err
		}
	}

	spec.OutputPath, err = c.deps.Namer.Path(artifact.KindRecording, resolution.Target, c.settings.Extension)
	if err != nil {
		return nil, report, fgerrors.NewRecorderError("failed to prepare recording path", err)
	}

	handle, err := c.deps.Recorder.Launch(ctx, spec)
	if err != nil {
		// The log, if any, explains the failure and stays.
		c.discard(logger, spec.OutputPath)
		return nil, report, err
	}

	sess := &state.Session{
		ID:           c.newID(),
		PID:          handle.PID,
		StartTime:    handle.StartTime,
		Target:       resolution.Target,
		StartedAt:    c.now(),
		AudioEnabled: spec.Audio,
		AudioDevice:  spec.AudioDevice,
		OutputPath:   spec.OutputPath,
		Recorder:     c.deps.Recorder.Binary(),
	}
	logger = logger.WithSession(sess.ID)

	if err := c.deps.Store.Write(sess, false); err != nil {
		logger.Error("failed to persist session, stopping recorder", "pid", sess.PID, "error", err.Error())
		// The process must not outlive a failed start, even when ctx is done.
		if _, termErr := c.deps.Recorder.Terminate(context.WithoutCancel(ctx), sess.PID); termErr != nil {
			logger.Error("failed to stop unregistered recorder", "pid", sess.PID, "error", termErr.Error())
			return nil, report, fgerrors.Join(err, termErr)
		}
		c.discard(logger, spec.OutputPath, spec.OutputPath+recorder.LogSuffix)
		return nil, report, err
	}

	logger.Info("recording started",
		"pid", sess.PID,
		"target", capture.Describe(sess.Target),
		"audio", sess.AudioEnabled,
		"audio_device", sess.AudioDevice,
		"output", sess.OutputPath,
	)
	return sess, report, nil
}

// discard removes recording files that no session refers to.
func (c *Controller) discard(logger *logging.Logger, paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove orphaned recording file", "path", p, "error", err.Error())
		}
	}
}

func (c *Controller) resolveAudio(ctx context.Context, spec *recorder.LaunchSpec, report *StartReport) error {
	res, err := c.deps.Devices.Resolve(ctx)
	if err == nil {
		spec.Audio = true
		spec.AudioDevice = res.Device
		return nil
	}

	report.AudioDiagnostic = err
	switch c.settings.AudioPolicy {
	case config.AudioPolicyRequired:
		return err
	case config.AudioPolicyRecorderDefault:
		spec.Audio = true
	default:
		report.AudioOmitted = true
	}
	return nil
}

// StopReport describes how a recording ended.
type StopReport struct {
	// AlreadyGone is set when the recorder had exited before stop.
	AlreadyGone bool
	// Forced is set when the recorder had to be killed; its output may be
	// unfinalized.
	Forced  bool
	Elapsed time.Duration
}

// Stop terminates the recording and removes the session.
//
// A corrupt session is left in place and no signal is sent. The session is
// removed when the recorder stopped or was already gone, and kept when it
// could not be signalled.
func (c *Controller) Stop(ctx context.Context) (*state.Session, StopReport, error) {
	var report StopReport

	sess, err := c.deps.Store.Read()
	if err != nil {
		return nil, report, err
	}
	if sess == nil {
		return nil, report, fmt.Errorf("%w to stop", fgerrors.ErrNotRecording)
	}
	logger := c.logger.WithOperation("stop").WithSession(sess.ID)
	report.Elapsed = sess.Elapsed(c.now())

	if c.running(sess) {
		res, err := c.deps.Recorder.Terminate(ctx, sess.PID)
		switch {
		case err == nil:
			report.AlreadyGone = res.AlreadyGone
			report.Forced = res.Forced
		case fgerrors.Is(err, fgerrors.ErrProcessGone):
			report.AlreadyGone = true
		default:
			logger.Error("failed to stop recorder", "pid", sess.PID, "error", err.Error())
			return sess, report, err
		}
	} else {
		report.AlreadyGone = true
	}

	if err := c.deps.Store.Clear(); err != nil {
		return sess, report, err
	}

	if report.AlreadyGone {
		logger.Warn("recorder was already gone, cleared stale session", "pid", sess.PID)
	} else {
		logger.Info("recording stopped",
			"pid", sess.PID,
			"forced", report.Forced,
			"elapsed", report.Elapsed.String(),
			"output", sess.OutputPath,
		)
	}
	return sess, report, nil
}

// Pause freezes the recorder. Pausing a paused recording is a no-op.
func (c *Controller) Pause(ctx context.Context) (*state.Session, error) {
	return c.transition(ctx, "pause", true)
}

// Resume continues a paused recorder. Resuming a running recording is a no-op.
func (c *Controller) Resume(ctx context.Context) (*state.Session, error) {
	return c.transition(ctx, "resume", false)
}

// TogglePause pauses a running recording or resumes a paused one.
func (c *Controller) TogglePause(ctx context.Context) (*state.Session, error) {
	sess, err := c.live("toggle")
	if err != nil {
		return nil, err
	}
	if sess.Paused {
		return c.Resume(ctx)
	}
	return c.Pause(ctx)
}

func (c *Controller) transition(ctx context.Context, op string, pause bool) (*state.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := c.live(op)
	if err != nil {
		return nil, err
	}
	if sess.Paused == pause {
		return sess, nil
	}
	logger := c.logger.WithOperation(op).WithSession(sess.ID)

	signal := c.deps.Recorder.Resume
	if pause {
		signal = c.deps.Recorder.Pause
	}
	if err := signal(sess.PID); err != nil {
		if fgerrors.Is(err, fgerrors.ErrProcessGone) {
			return nil, c.clearStale(sess, op)
		}
		logger.Error("failed to signal recorder", "pid", sess.PID, "error", err.Error())
		return nil, err
	}

	now := c.now()
	updated, err := c.deps.Store.Update(func(s *state.Session) error {
		if s.ID != sess.ID {
			return fmt.Errorf("%w: session replaced during %s", fgerrors.ErrNotRecording, op)
		}
		if pause {
			s.MarkPaused(now)
		} else {
			s.MarkResumed(now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("recording "+pastTense(op), "pid", sess.PID, "elapsed", updated.Elapsed(now).String())
	return updated, nil
}

// live returns the stored session if its recorder is still running. A
// session whose recorder died is cleared and reported as not recording.
func (c *Controller) live(op string) (*state.Session, error) {
	sess, err := c.deps.Store.Read()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w to %s", fgerrors.ErrNotRecording, op)
	}
	if !c.running(sess) {
		return nil, c.clearStale(sess, op)
	}
	return sess, nil
}

func (c *Controller) clearStale(sess *state.Session, op string) error {
	c.logger.WithOperation(op).WithSession(sess.ID).Warn("recorder is gone, clearing stale session", "pid", sess.PID)
	if err := c.deps.Store.Clear(); err != nil {
		return err
	}
	return fmt.Errorf("%w: recorder (pid %d) is no longer running", fgerrors.ErrNotRecording, sess.PID)
}

// running reports whether the session's recorder is alive and is still the
// process that was launched rather than one that reused its PID.
func (c *Controller) running(sess *state.Session) bool {
	return c.deps.Recorder.Alive(sess.PID) && c.deps.Recorder.Owns(sess.PID, sess.StartTime)
}

// Phase is the lifecycle state reported by Status.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRecording Phase = "recording"
	PhasePaused    Phase = "paused"
	// PhaseStale means a session is stored but its recorder is gone.
	PhaseStale Phase = "stale"
)

// Status is a snapshot of the lifecycle.
type Status struct {
	Phase   Phase
	Session *state.Session
	Elapsed time.Duration
}

// Status reports the current lifecycle state without changing anything.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	sess, err := c.deps.Store.Read()
	if err != nil {
		return Status{}, err
	}
	if sess == nil {
		return Status{Phase: PhaseIdle}, nil
	}

	st := Status{Session: sess, Elapsed: sess.Elapsed(c.now())}
	switch {
	case !c.running(sess):
		st.Phase = PhaseStale
	case sess.Paused:
		st.Phase = PhasePaused
	default:
		st.Phase = PhaseRecording
	}
	return st, nil
}

// Now returns the current time as the controller sees it.
func (c *Controller) Now() time.Time {
	return c.now()
}

// StatePath returns the session file path.
func (c *Controller) StatePath() string {
	return c.deps.Store.Path()
}

func alreadyRecording(sess *state.Session) error {
	return fmt.Errorf("%w (pid %d, writing %s)", fgerrors.ErrAlreadyRecording, sess.PID, sess.OutputPath)
}

func pastTense(op string) string {
	switch op {
	case "pause":
		return "paused"
	case "resume":
		return "resumed"
	default:
		return op
	}
}
