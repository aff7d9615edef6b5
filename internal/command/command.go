// Package command runs the external programs framegrab depends on
// (selector, screenshot tool, compositor and audio queries, clipboard).
//
// Every call is bounded by a timeout and classifies failures so callers can
// tell a missing program from a failed one from a slow one:
//
//   - program not in PATH: *errors.ToolError (matches errors.ErrToolNotFound)
//   - non-zero exit: *ExitError carrying the exit code and trimmed stderr
//   - deadline exceeded: *errors.TimeoutError (matches errors.ErrTimeout)
package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// Result holds the captured output of a finished program.
type Result struct {
	Stdout []byte
	Stderr string
}

// Runner executes external programs.
type Runner interface {
	// Run executes name with args and waits for it to exit.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// RunWithInput is Run with stdin connected to r.
	RunWithInput(ctx context.Context, r io.Reader, name string, args ...string) (Result, error)
}

// ExitError reports a program that ran but exited non-zero.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

// Error prefers the program's own diagnostic over the bare exit status.
func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %s", e.Tool, e.Stderr)
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// Timeout bounds each call. Zero leaves the caller's context as the only bound.
	Timeout time.Duration

	lookPath func(string) (string, error)
}

// NewExecRunner returns a Runner that gives every call at most timeout to finish.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout, lookPath: exec.LookPath}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.run(ctx, nil, name, args)
}

// RunWithInput implements Runner.
func (r *ExecRunner) RunWithInput(ctx context.Context, in io.Reader, name string, args ...string) (Result, error) {
	return r.run(ctx, in, name, args)
}

// WithTimeout returns a copy of r bounded by timeout instead.
func (r *ExecRunner) WithTimeout(timeout time.Duration) *ExecRunner {
	c := *r
	c.Timeout = timeout
	return &c
}

func (r *ExecRunner) run(ctx context.Context, in io.Reader, name string, args []string) (Result, error) {
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(name)
	if err != nil {
		return Result{}, fgerrors.NewToolError(name, err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = in
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Do not hang on grandchildren that inherited the pipes after a kill
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: strings.TrimSpace(stderr.String())}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			op := strings.TrimSpace(name + " " + strings.Join(args, " "))
			return res, fgerrors.NewTimeoutError(op, r.Timeout).WithCause(ctxErr)
		}
		return res, fmt.Errorf("%s: %w", name, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if fgerrors.As(err, &exitErr) {
			return res, &ExitError{Tool: name, Code: exitErr.ExitCode(), Stderr: res.Stderr}
		}
		return res, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return res, nil
}

// Available reports whether name resolves to an executable in PATH.
func Available(name string) (string, bool) {
	path, err := exec.LookPath(name)
	return path, err == nil
}
