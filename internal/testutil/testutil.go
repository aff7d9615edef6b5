// Package testutil provides testing utilities for framegrab tests.
package testutil

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// Call records one invocation seen by a FakeRunner.
type Call struct {
	Name  string
	Args  []string
	Stdin string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what a FakeRunner returns for a matching call.
type Response struct {
	Stdout string
	Stderr string
	Err    error
}

// FakeRunner is a command.Runner that answers from a table keyed by program
// name. Unknown programs fail as if they were not installed.
// It is safe for concurrent use.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []Call
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On registers the response for every call to name.
func (f *FakeRunner) On(name string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = resp
	return f
}

// Run implements command.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	return f.RunWithInput(ctx, nil, name, args...)
}

// RunWithInput implements command.Runner.
func (f *FakeRunner) RunWithInput(ctx context.Context, r io.Reader, name string, args ...string) (command.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	if r != nil {
		data, _ := io.ReadAll(r)
		call.Stdin = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	resp, ok := f.responses[name]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return command.Result{}, err
	}
	if !ok {
		return command.Result{}, fgerrors.NewToolError(name, exec.ErrNotFound)
	}
	return command.Result{Stdout: []byte(resp.Stdout), Stderr: resp.Stderr}, resp.Err
}

// Calls returns a copy of every call made so far.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the calls made to name.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// RequireShell skips the test when /bin/sh is unavailable.
func RequireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// WriteScript creates an executable shell script named name in dir and
// returns its path. body is everything after the shebang line.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireShell(t)

	path := filepath.Join(dir, name)
	content := "#!/bin/sh\n" + body
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", name, err)
	}
	return path
}

// PrependPath puts dir first on PATH for the duration of the test.
func PrependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
