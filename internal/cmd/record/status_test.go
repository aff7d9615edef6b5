package record

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/state"
)

func sampleStatus(phase recording.Phase) recording.Status {
	return recording.Status{
		Phase: phase,
		Session: &state.Session{
			ID:           "abc",
			PID:          321,
			Target:       capture.Output{Name: "HDMI-A-1"},
			StartedAt:    time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
			AudioEnabled: true,
			OutputPath:   "/videos/recording-fullscreen.mkv",
		},
		Elapsed: 75 * time.Second,
	}
}

func TestWriteStatus_Text(t *testing.T) {
	tests := []struct {
		name  string
		phase recording.Phase
		want  []string
	}{
		{"recording", recording.PhaseRecording, []string{"recording", "output HDMI-A-1", "00:01:15", "recorder default", "321"}},
		{"paused", recording.PhasePaused, []string{"paused"}},
		{"stale", recording.PhaseStale, []string{"stale", "record stop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeStatus(&buf, newStatusView(sampleStatus(tt.phase), "/state/recording.json"), "text"))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestWriteStatus_Idle(t *testing.T) {
	var buf bytes.Buffer
	v := newStatusView(recording.Status{Phase: recording.PhaseIdle}, "/state/recording.json")
	require.NoError(t, writeStatus(&buf, v, "text"))
	assert.Equal(t, "Not recording.\n", buf.String())

	buf.Reset()
	require.NoError(t, writeStatus(&buf, v, "json"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]any{"state": "idle", "audio": false, "state_file": "/state/recording.json"}, got)
}

func TestWriteStatus_Structured(t *testing.T) {
	v := newStatusView(sampleStatus(recording.PhasePaused), "/state/recording.json")

	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, v, "yaml"))
	var fromYAML statusView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, v, fromYAML)

	buf.Reset()
	require.NoError(t, writeStatus(&buf, v, "json"))
	var fromJSON statusView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, v, fromJSON)
	assert.Equal(t, "2026-10-19T08:00:00Z", fromJSON.StartedAt)
}
