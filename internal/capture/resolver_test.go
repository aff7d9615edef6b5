package capture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/testutil"
)

var tools = capture.Tools{Selector: "slurp", Compositor: "niri"}

func newResolver(fake *testutil.FakeRunner) *capture.Resolver {
	return capture.NewResolver(fake, nil, tools, nil)
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"region", "Fullscreen", " window "} {
		_, err := capture.ParseMode(in)
		assert.NoError(t, err, in)
	}
	_, err := capture.ParseMode("desktop")
	assert.True(t, fgerrors.Is(err, fgerrors.ErrInvalidInput))
}

func TestResolve_Region(t *testing.T) {
	ctx := context.Background()

	t.Run("selected", func(t *testing.T) {
		fake := testutil.NewFakeRunner().On("slurp", testutil.Response{Stdout: "10,20 300x200\n"})
		res, err := newResolver(fake).Resolve(ctx, capture.ModeRegion)
		require.NoError(t, err)
		assert.Equal(t, capture.Region{X: 10, Y: 20, Width: 300, Height: 200}, res.Target)
		assert.False(t, res.FellBack)
	})

	t.Run("cancelled by user", func(t *testing.T) {
		fake := testutil.NewFakeRunner().On("slurp", testutil.Response{
			Err: &command.ExitError{Tool: "slurp", Code: 1, Stderr: "selection cancelled"},
		})
		_, err := newResolver(fake).Resolve(ctx, capture.ModeRegion)
		require.Error(t, err)
		assert.True(t, fgerrors.Is(err, fgerrors.ErrSelectionAborted))
		assert.Equal(t, fgerrors.SeverityInfo, fgerrors.GetSeverity(err))
	})

	t.Run("empty output", func(t *testing.T) {
		fake := testutil.NewFakeRunner().On("slurp", testutil.Response{Stdout: "  \n"})
		_, err := newResolver(fake).Resolve(ctx, capture.ModeRegion)
		assert.True(t, fgerrors.Is(err, fgerrors.ErrSelectionAborted))
	})

	t.Run("selector missing", func(t *testing.T) {
		_, err := newResolver(testutil.NewFakeRunner()).Resolve(ctx, capture.ModeRegion)
		require.Error(t, err)
		assert.True(t, fgerrors.Is(err, fgerrors.ErrToolNotFound))
		assert.False(t, fgerrors.Is(err, fgerrors.ErrSelectionAborted))
		var toolErr *fgerrors.ToolError
		require.True(t, fgerrors.As(err, &toolErr))
		assert.Equal(t, "slurp", toolErr.Tool)
	})

	t.Run("unparseable geometry", func(t *testing.T) {
		fake := testutil.NewFakeRunner().On("slurp", testutil.Response{Stdout: "whoops"})
		_, err := newResolver(fake).Resolve(ctx, capture.ModeRegion)
		assert.True(t, fgerrors.Is(err, fgerrors.ErrInvalidInput))
	})

	t.Run("interactive runner used for selection", func(t *testing.T) {
		query := testutil.NewFakeRunner()
		interactive := testutil.NewFakeRunner().On("slurp", testutil.Response{Stdout: "0,0 1x1"})
		r := capture.NewResolver(query, interactive, tools, nil)

		_, err := r.Resolve(ctx, capture.ModeRegion)
		require.NoError(t, err)
		assert.Empty(t, query.Calls())
		assert.Len(t, interactive.CallsTo("slurp"), 1)
	})
}

func TestResolve_Fullscreen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		resp     *testutil.Response
		want     capture.Output
		fellBack bool
	}{
		{
			name: "bare object",
			resp: &testutil.Response{Stdout: `{"name":"DP-1","make":"Dell","modes":[]}`},
			want: capture.Output{Name: "DP-1"},
		},
		{
			name: "reply envelope",
			resp: &testutil.Response{Stdout: `{"Ok":{"FocusedOutput":{"name":"eDP-1"}}}`},
			want: capture.Output{Name: "eDP-1"},
		},
		{
			name:     "compositor missing",
			resp:     nil,
			want:     capture.Output{},
			fellBack: true,
		},
		{
			name:     "non-zero exit",
			resp:     &testutil.Response{Err: &command.ExitError{Tool: "niri", Code: 1, Stderr: "not running"}},
			want:     capture.Output{},
			fellBack: true,
		},
		{
			name:     "timeout",
			resp:     &testutil.Response{Err: fgerrors.NewTimeoutError("niri msg", 0)},
			want:     capture.Output{},
			fellBack: true,
		},
		{
			name:     "malformed json",
			resp:     &testutil.Response{Stdout: `{"name":`},
			want:     capture.Output{},
			fellBack: true,
		},
		{
			name:     "no name",
			resp:     &testutil.Response{Stdout: `{"Ok":{"FocusedOutput":null}}`},
			want:     capture.Output{},
			fellBack: true,
		},
		{
			name:     "empty name",
			resp:     &testutil.Response{Stdout: `{"name":""}`},
			want:     capture.Output{},
			fellBack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeRunner()
			if tt.resp != nil {
				fake.On("niri", *tt.resp)
			}

			res, err := newResolver(fake).Resolve(ctx, capture.ModeFullscreen)
			require.NoError(t, err, "fullscreen resolution never fails")
			assert.Equal(t, tt.want, res.Target)
			assert.Equal(t, tt.fellBack, res.FellBack)
			if tt.fellBack {
				assert.Error(t, res.Diagnostic)
			} else {
				assert.NoError(t, res.Diagnostic)
			}

			calls := fake.CallsTo("niri")
			if tt.resp != nil {
				require.Len(t, calls, 1)
				assert.Equal(t, "niri msg --json focused-output", calls[0].String())
			}
		})
	}
}

func TestResolve_WindowModeNeedsID(t *testing.T) {
	_, err := newResolver(testutil.NewFakeRunner()).Resolve(context.Background(), capture.ModeWindow)
	assert.True(t, fgerrors.Is(err, fgerrors.ErrInvalidInput))
}
