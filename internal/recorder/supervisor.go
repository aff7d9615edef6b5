// Package recorder launches the screen recorder as a detached process and
// controls it by PID, so that a later, unrelated framegrab invocation can
// pause, resume or stop it.
package recorder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/logging"
)

// LogSuffix is appended to the output path to name the recorder's stderr log.
const LogSuffix = ".log"

// Options configures a Supervisor.
type Options struct {
	// Binary is the recorder program.
	Binary string
	// ExtraArgs are passed before the output flag.
	ExtraArgs []string
	// GraceTimeout is how long Terminate waits after SIGINT before SIGKILL.
	GraceTimeout time.Duration
	// PollInterval is how often Terminate checks whether the recorder exited.
	PollInterval time.Duration
	// StartupCheck is how long Launch watches for an immediate exit. Zero disables it.
	StartupCheck time.Duration
}

// Handle is a recorder launched by this process.
type Handle struct {
	PID int
	// StartTime is the kernel's start time for PID in clock ticks since
	// boot, or zero where it cannot be read.
	StartTime uint64
	LogPath   string

	done chan struct{}
	err  error
}

// Done is closed once the recorder has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the recorder's exit error. Valid after Done is closed.
func (h *Handle) Err() error { return h.err }

// TerminateResult describes how a recorder went away.
type TerminateResult struct {
	// AlreadyGone is set when the process did not exist when Terminate began.
	AlreadyGone bool
	// Forced is set when the recorder ignored SIGINT for the whole grace
	// period and was killed. Its output may be unfinalized.
	Forced bool
}

// Supervisor starts and signals recorder processes.
type Supervisor struct {
	opts   Options
	logger *logging.Logger

	lookPath func(string) (string, error)
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(opts Options, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	return &Supervisor{opts: opts, logger: logger, lookPath: exec.LookPath}
}

// Binary returns the recorder program name.
func (s *Supervisor) Binary() string { return s.opts.Binary }

// Launch starts the recorder in its own session with stdin and stdout
// discarded and stderr appended to "<output>.log". The child is reaped by a
// goroutine for as long as this process lives; after that the init process
// adopts it.
func (s *Supervisor) Launch(ctx context.Context, spec LaunchSpec) (*Handle, error) {
	args, err := BuildArgs(spec, s.opts.ExtraArgs)
	if err != nil {
		return nil, err
	}

	path, err := s.lookPath(s.opts.Binary)
	if err != nil {
		return nil, fgerrors.NewToolError(s.opts.Binary, err)
	}

	if err := os.MkdirAll(filepath.Dir(spec.OutputPath), 0o755); err != nil {
		return nil, fgerrors.NewRecorderError("failed to create output directory", err).WithTool(s.opts.Binary)
	}

	// Not CommandContext: the recorder must outlive ctx and this process.
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil

	logPath := spec.OutputPath + LogSuffix
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("recorder stderr will be discarded", "path", logPath, "error", err.Error())
		logPath = ""
	} else {
		cmd.Stderr = logFile
	}

	if err := ctx.Err(); err != nil {
		closeQuietly(logFile)
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		closeQuietly(logFile)
		return nil, fgerrors.NewRecorderError("failed to start recorder", fmt.Errorf("%w: %w", fgerrors.ErrSpawnFailed, err)).
			WithTool(s.opts.Binary)
	}
	closeQuietly(logFile)

	h := &Handle{PID: cmd.Process.Pid, LogPath: logPath, done: make(chan struct{})}
	h.StartTime, _ = procStartTime(h.PID)
	go func() {
		h.err = cmd.Wait()
		close(h.done)
	}()

	s.logger.Info("recorder launched",
		"pid", h.PID,
		"tool", s.opts.Binary,
		"args", strings.Join(args, " "),
	)

	if s.opts.StartupCheck > 0 {
		select {
		case <-h.done:
			detail := lastLine(logPath)
			if detail == "" && h.err != nil {
				detail = h.err.Error()
			}
			cause := fgerrors.ErrSpawnFailed
			if detail != "" {
				cause = fmt.Errorf("%w: %s", fgerrors.ErrSpawnFailed, detail)
			}
			return nil, fgerrors.NewRecorderError("recorder exited immediately", cause).
				WithPID(h.PID).
				WithTool(s.opts.Binary)
		case <-time.After(s.opts.StartupCheck):
		case <-ctx.Done():
		}
	}

	return h, nil
}

// Pause freezes the recorder with SIGSTOP.
func (s *Supervisor) Pause(pid int) error {
	return s.signal(pid, unix.SIGSTOP, "pause")
}

// Resume continues a paused recorder with SIGCONT.
func (s *Supervisor) Resume(pid int) error {
	return s.signal(pid, unix.SIGCONT, "resume")
}

func (s *Supervisor) signal(pid int, sig unix.Signal, op string) error {
	if err := sendSignal(pid, sig); err != nil {
		if fgerrors.Is(err, fgerrors.ErrProcessGone) {
			return fgerrors.NewRecorderError(op+" failed", err).WithPID(pid).WithTool(s.opts.Binary)
		}
		return fgerrors.NewRecorderError(op+" failed", fmt.Errorf("%w: %w", fgerrors.ErrSignalFailed, err)).
			WithPID(pid).
			WithTool(s.opts.Binary)
	}
	s.logger.Debug("signalled recorder", "pid", pid, "signal", unix.SignalName(sig))
	return nil
}

// Alive reports whether pid is a live process.
func (s *Supervisor) Alive(pid int) bool {
	return processAlive(pid)
}

// Owns reports whether pid is still the process that was launched at
// startTime rather than a later one that reused the PID. It returns true when
// either start time is unknown, so a mismatch is only reported where /proc is
// available.
func (s *Supervisor) Owns(pid int, startTime uint64) bool {
	if startTime == 0 {
		return true
	}
	current, ok := procStartTime(pid)
	if !ok {
		return true
	}
	return current == startTime
}

// Terminate stops the recorder: SIGCONT (a stopped process cannot act on
// SIGINT), then SIGINT so the recorder finalizes its output, then SIGKILL if
// it is still running after the grace timeout.
func (s *Supervisor) Terminate(ctx context.Context, pid int) (TerminateResult, error) {
	if !processAlive(pid) {
		return TerminateResult{AlreadyGone: true}, nil
	}

	for _, sig := range []unix.Signal{unix.SIGCONT, unix.SIGINT} {
		if err := sendSignal(pid, sig); err != nil {
			if fgerrors.Is(err, fgerrors.ErrProcessGone) {
				return TerminateResult{AlreadyGone: true}, nil
			}
			return TerminateResult{}, fgerrors.NewRecorderError("stop failed", fmt.Errorf("%w: %w", fgerrors.ErrSignalFailed, err)).
				WithPID(pid).
				WithTool(s.opts.Binary)
		}
	}

	exited, err := s.waitExit(ctx, pid, s.opts.GraceTimeout)
	if err != nil {
		return TerminateResult{}, err
	}
	if exited {
		s.logger.Info("recorder stopped", "pid", pid)
		return TerminateResult{}, nil
	}

	s.logger.Warn("recorder ignored SIGINT, killing", "pid", pid, "grace", s.opts.GraceTimeout.String())
	if err := sendSignal(pid, unix.SIGKILL); err != nil {
		if fgerrors.Is(err, fgerrors.ErrProcessGone) {
			return TerminateResult{}, nil
		}
		return TerminateResult{}, fgerrors.NewRecorderError("kill failed", fmt.Errorf("%w: %w", fgerrors.ErrSignalFailed, err)).
			WithPID(pid).
			WithTool(s.opts.Binary)
	}

	// SIGKILL cannot be caught; this only waits for the kernel to tear it down.
	if _, err := s.waitExit(context.WithoutCancel(ctx), pid, 2*time.Second); err != nil {
		return TerminateResult{}, err
	}
	return TerminateResult{Forced: true}, nil
}

// waitExit polls until pid exits, timeout elapses or ctx is done.
func (s *Supervisor) waitExit(ctx context.Context, pid int, timeout time.Duration) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		if !processAlive(pid) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("waiting for recorder %d to exit: %w", pid, ctx.Err())
		case <-deadline.C:
			return !processAlive(pid), nil
		case <-ticker.C:
		}
	}
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

// lastLine returns the last non-empty line of the file at path.
func lastLine(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	return strings.TrimSpace(string(lines[len(lines)-1]))
}
