package screenshot_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/framegrab/internal/artifact"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/screenshot"
	"github.com/Iron-Ham/framegrab/internal/testutil"
)

var stamp = time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local)

func newService(t *testing.T, fake *testutil.FakeRunner) (*screenshot.Service, string) {
	t.Helper()
	root := t.TempDir()
	resolver := capture.NewResolver(fake, nil, capture.Tools{Selector: "slurp", Compositor: "niri"}, nil)
	namer := artifact.NewNamer(root).WithClock(func() time.Time { return stamp })
	tools := screenshot.Tools{Screenshot: "grim", Clipboard: "wl-copy", Compositor: "niri"}
	return screenshot.NewService(fake, resolver, namer, tools, nil), root
}

func TestCapture_Region(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("slurp", testutil.Response{Stdout: "100,200 300x400\n"}).
		On("grim", testutil.Response{})
	svc, root := newService(t, fake)

	res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeRegion})
	require.NoError(t, err)

	want := filepath.Join(root, "screenshots", "screenshot-region-20261019-093000.png")
	assert.Equal(t, want, res.Path)
	assert.Equal(t, capture.Region{X: 100, Y: 200, Width: 300, Height: 400}, res.Target)
	assert.False(t, res.Copied)

	grim := fake.CallsTo("grim")
	require.Len(t, grim, 1)
	assert.Equal(t, []string{"-g", "100,200 300x400", want}, grim[0].Args)
	assert.Empty(t, fake.CallsTo("wl-copy"))
}

func TestCapture_RegionAborted(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("slurp", testutil.Response{Err: &command.ExitError{Tool: "slurp", Code: 1, Stderr: "selection cancelled"}}).
		On("grim", testutil.Response{})
	svc, _ := newService(t, fake)

	_, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeRegion})
	assert.True(t, fgerrors.Is(err, fgerrors.ErrSelectionAborted), "got %v", err)
	assert.Empty(t, fake.CallsTo("grim"))
}

func TestCapture_Fullscreen(t *testing.T) {
	t.Run("focused output", func(t *testing.T) {
		fake := testutil.NewFakeRunner().
			On("niri", testutil.Response{Stdout: `{"name":"DP-2"}`}).
			On("grim", testutil.Response{})
		svc, root := newService(t, fake)

		res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeFullscreen})
		require.NoError(t, err)
		assert.False(t, res.TargetFellBack)
		want := filepath.Join(root, "screenshots", "screenshot-fullscreen-20261019-093000.png")
		assert.Equal(t, []string{"-o", "DP-2", want}, fake.CallsTo("grim")[0].Args)
	})

	t.Run("compositor unavailable", func(t *testing.T) {
		fake := testutil.NewFakeRunner().On("grim", testutil.Response{})
		svc, root := newService(t, fake)

		res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeFullscreen})
		require.NoError(t, err)
		assert.True(t, res.TargetFellBack)
		assert.True(t, fgerrors.Is(res.TargetDiagnostic, fgerrors.ErrToolNotFound))
		want := filepath.Join(root, "screenshots", "screenshot-fullscreen-20261019-093000.png")
		assert.Equal(t, []string{want}, fake.CallsTo("grim")[0].Args)
	})
}

func TestCapture_GrimFails(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("niri", testutil.Response{Stdout: `{"name":"DP-2"}`}).
		On("grim", testutil.Response{Err: &command.ExitError{Tool: "grim", Code: 1, Stderr: "failed to create display"}})
	svc, root := newService(t, fake)

	_, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeFullscreen})
	require.Error(t, err)
	var capErr *fgerrors.CaptureError
	require.True(t, fgerrors.As(err, &capErr))
	assert.Equal(t, "grim", capErr.Tool)
	assert.Contains(t, err.Error(), "failed to create display")
	assertNoScreenshots(t, root)
}

// assertNoScreenshots checks that no reserved name was left behind.
func assertNoScreenshots(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, "screenshots"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCapture_GrimMissing(t *testing.T) {
	fake := testutil.NewFakeRunner().On("niri", testutil.Response{Stdout: `{"name":"DP-2"}`})
	svc, _ := newService(t, fake)

	_, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeFullscreen})
	assert.True(t, fgerrors.Is(err, fgerrors.ErrToolNotFound), "got %v", err)
}

func TestCapture_Window(t *testing.T) {
	fake := testutil.NewFakeRunner().On("grim", testutil.Response{})
	svc, root := newService(t, fake)

	res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeWindow, WindowID: 42})
	require.NoError(t, err)
	want := filepath.Join(root, "screenshots", "screenshot-window-42-20261019-093000.png")
	assert.Equal(t, want, res.Path)
	assert.Equal(t, capture.Window{ID: 42}, res.Target)
	assert.False(t, res.ViaCompositor)
	assert.Equal(t, []string{"-T", "42", want}, fake.CallsTo("grim")[0].Args)
}

func TestCapture_FocusedWindow(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("niri", testutil.Response{Stdout: `[{"id":3,"title":"a","workspace_id":1},{"id":9,"title":"b","workspace_id":1,"is_focused":true}]`}).
		On("grim", testutil.Response{})
	svc, _ := newService(t, fake)

	res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeWindow})
	require.NoError(t, err)
	assert.Equal(t, capture.Window{ID: 9}, res.Target)
	assert.Equal(t, "niri msg --json windows", fake.CallsTo("niri")[0].String())
}

func TestCapture_NoFocusedWindow(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("niri", testutil.Response{Stdout: `[{"id":3,"title":"a","workspace_id":1}]`}).
		On("grim", testutil.Response{})
	svc, _ := newService(t, fake)

	_, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeWindow})
	assert.True(t, fgerrors.Is(err, fgerrors.ErrInvalidInput), "got %v", err)
	assert.Empty(t, fake.CallsTo("grim"))
}

func TestCapture_WindowCompositorFallback(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("grim", testutil.Response{Err: &command.ExitError{
			Tool:   "grim",
			Code:   1,
			Stderr: "compositor doesn't support the screen capture protocol",
		}}).
		On("niri", testutil.Response{}).
		On("wl-copy", testutil.Response{})
	svc, root := newService(t, fake)

	res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeWindow, WindowID: 42, Copy: true})
	require.NoError(t, err)
	assert.True(t, res.ViaCompositor)
	assert.Empty(t, res.Path)
	assertNoScreenshots(t, root)
	assert.False(t, res.Copied, "the compositor owns the image")

	var cmds []string
	for _, c := range fake.CallsTo("niri") {
		cmds = append(cmds, c.String())
	}
	assert.Equal(t, []string{
		"niri msg action focus-window --id 42",
		"niri msg action screenshot-window",
	}, cmds)
	assert.Empty(t, fake.CallsTo("wl-copy"))
}

func TestCapture_WindowOtherGrimErrorNoFallback(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("grim", testutil.Response{Err: &command.ExitError{Tool: "grim", Code: 1, Stderr: "unknown toplevel"}}).
		On("niri", testutil.Response{})
	svc, _ := newService(t, fake)

	_, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeWindow, WindowID: 42})
	require.Error(t, err)
	assert.Empty(t, fake.CallsTo("niri"))
}

func TestCapture_Copy(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("slurp", testutil.Response{Stdout: "0,0 10x10"}).
		On("wl-copy", testutil.Response{})
	// grim is a fake that leaves no file; write one where it would.
	grim := &imageWriter{FakeRunner: fake, data: "\x89PNG fake"}
	fake.On("grim", testutil.Response{})
	svc, _ := newServiceWith(t, grim)

	res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeRegion, Copy: true})
	require.NoError(t, err)
	assert.True(t, res.Copied)
	assert.NoError(t, res.ClipboardErr)

	copies := fake.CallsTo("wl-copy")
	require.Len(t, copies, 1)
	assert.Equal(t, []string{"--type", "image/png"}, copies[0].Args)
	assert.Equal(t, "\x89PNG fake", copies[0].Stdin)
}

func TestCapture_CopyFailureIsSoft(t *testing.T) {
	fake := testutil.NewFakeRunner().
		On("slurp", testutil.Response{Stdout: "0,0 10x10"}).
		On("grim", testutil.Response{})
	grim := &imageWriter{FakeRunner: fake, data: "png"}
	svc, _ := newServiceWith(t, grim)

	res, err := svc.Capture(context.Background(), screenshot.Options{Mode: capture.ModeRegion, Copy: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Path)
	assert.False(t, res.Copied)
	assert.True(t, fgerrors.Is(res.ClipboardErr, fgerrors.ErrToolNotFound), "got %v", res.ClipboardErr)
}

func TestCapture_UnknownMode(t *testing.T) {
	svc, _ := newService(t, testutil.NewFakeRunner())
	_, err := svc.Capture(context.Background(), screenshot.Options{Mode: "panorama"})
	assert.True(t, fgerrors.Is(err, fgerrors.ErrInvalidInput))
}

// imageWriter wraps a FakeRunner and writes data to the last argument of
// every grim call, as the real tool would.
type imageWriter struct {
	*testutil.FakeRunner
	data string
}

func (w *imageWriter) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	res, err := w.FakeRunner.Run(ctx, name, args...)
	if err == nil && name == "grim" && len(args) > 0 {
		path := args[len(args)-1]
		if !strings.HasPrefix(path, "-") {
			if werr := os.WriteFile(path, []byte(w.data), 0o644); werr != nil {
				return res, werr
			}
		}
	}
	return res, err
}

func newServiceWith(t *testing.T, runner command.Runner) (*screenshot.Service, string) {
	t.Helper()
	root := t.TempDir()
	resolver := capture.NewResolver(runner, nil, capture.Tools{Selector: "slurp", Compositor: "niri"}, nil)
	namer := artifact.NewNamer(root).WithClock(func() time.Time { return stamp })
	tools := screenshot.Tools{Screenshot: "grim", Clipboard: "wl-copy", Compositor: "niri"}
	return screenshot.NewService(runner, resolver, namer, tools, nil), root
}
