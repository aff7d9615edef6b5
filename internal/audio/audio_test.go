package audio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/framegrab/internal/audio"
	"github.com/Iron-Ham/framegrab/internal/command"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/testutil"
)

func TestResolve_Found(t *testing.T) {
	fake := testutil.NewFakeRunner().On("pactl", testutil.Response{
		Stdout: "alsa_output.pci-0000_00_1f.3.analog-stereo\n",
	})

	res, err := audio.NewResolver(fake, "pactl", nil).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Found())
	assert.Equal(t, "alsa_output.pci-0000_00_1f.3.analog-stereo.monitor", res.Device)
	assert.NoError(t, res.Diagnostic)
	assert.Equal(t, "pactl get-default-sink", fake.Calls()[0].String())
}

func TestResolve_NotFound(t *testing.T) {
	tests := []struct {
		name      string
		resp      *testutil.Response
		wantCause error
	}{
		{"tool missing", nil, fgerrors.ErrToolNotFound},
		{"non-zero exit", &testutil.Response{Err: &command.ExitError{Tool: "pactl", Code: 1, Stderr: "Connection refused"}}, nil},
		{"timeout", &testutil.Response{Err: fgerrors.NewTimeoutError("pactl get-default-sink", 3*time.Second)}, fgerrors.ErrTimeout},
		{"empty output", &testutil.Response{Stdout: "\n"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeRunner()
			if tt.resp != nil {
				fake.On("pactl", *tt.resp)
			}

			res, err := audio.NewResolver(fake, "pactl", nil).Resolve(context.Background())
			require.Error(t, err)
			assert.True(t, fgerrors.Is(err, fgerrors.ErrNoAudioDevice), "got %v", err)
			if tt.wantCause != nil {
				assert.True(t, fgerrors.Is(err, tt.wantCause), "cause lost: %v", err)
			}
			assert.False(t, res.Found())
			assert.Equal(t, err, res.Diagnostic)
			assert.Equal(t, fgerrors.SeverityWarning, fgerrors.GetSeverity(err))
		})
	}
}
