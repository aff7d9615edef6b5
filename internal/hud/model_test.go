package hud

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/framegrab/internal/capture"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/state"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeController struct {
	toggles int
	stops   int

	toggleSession *state.Session
	toggleErr     error
	stopSession   *state.Session
	stopReport    recording.StopReport
	stopErr       error
	status        recording.Status
	statusErr     error
}

func (f *fakeController) TogglePause(context.Context) (*state.Session, error) {
	f.toggles++
	return f.toggleSession, f.toggleErr
}

func (f *fakeController) Stop(context.Context) (*state.Session, recording.StopReport, error) {
	f.stops++
	return f.stopSession, f.stopReport, f.stopErr
}

func (f *fakeController) Status(context.Context) (recording.Status, error) {
	return f.status, f.statusErr
}

func testSession() *state.Session {
	return &state.Session{
		ID:         "sess-1",
		PID:        4242,
		Target:     capture.Region{X: 10, Y: 20, Width: 640, Height: 480},
		StartedAt:  t0,
		OutputPath: "/tmp/recording-region.mkv",
		Recorder:   "wf-recorder",
	}
}

func newTestModel(ctrl Controller, sess *state.Session, now *time.Time) Model {
	return New(context.Background(), ctrl, sess, Options{
		Clock: func() time.Time { return *now },
	})
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// send applies msg and, when the model returns a command, runs it and feeds
// the result back once. It returns the final model and that follow-up command.
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestView_ElapsedExcludesPauses(t *testing.T) {
	now := t0.Add(90 * time.Second)
	sess := testSession()
	sess.PausedTotal = 30 * time.Second
	m := newTestModel(&fakeController{}, sess, &now)

	view := m.View()
	assert.Contains(t, view, "00:01:00")
	assert.Contains(t, view, "REC")
	assert.Contains(t, view, "region 10,20 640x480")
	assert.Contains(t, view, "pause/resume")
	assert.Contains(t, view, "detach")
}

func TestView_PausedFreezesClock(t *testing.T) {
	now := t0.Add(2 * time.Minute)
	sess := testSession()
	sess.MarkPaused(t0.Add(time.Minute))
	m := newTestModel(&fakeController{}, sess, &now)

	assert.Contains(t, m.View(), "00:01:00")
	assert.Contains(t, m.View(), "PAUSED")

	now = now.Add(10 * time.Minute)
	assert.Contains(t, m.View(), "00:01:00")
}

func TestBlink(t *testing.T) {
	now := t0
	m := newTestModel(&fakeController{}, testSession(), &now)
	require.True(t, m.visible)

	m, cmd := send(t, m, blinkMsg{})
	assert.False(t, m.visible)
	assert.NotNil(t, cmd, "blink reschedules itself")

	m, _ = send(t, m, blinkMsg{})
	assert.True(t, m.visible)

	paused := testSession()
	paused.MarkPaused(t0)
	m = newTestModel(&fakeController{}, paused, &now)
	for range 3 {
		m, _ = send(t, m, blinkMsg{})
		assert.True(t, m.visible, "the paused indicator is steady")
	}
}

func TestPauseKeyTogglesThroughController(t *testing.T) {
	now := t0.Add(time.Minute)
	paused := testSession()
	paused.MarkPaused(now)
	ctrl := &fakeController{toggleSession: paused}
	m := newTestModel(ctrl, testSession(), &now)

	m, cmd := send(t, m, runeKey('p'))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	// A second press while the first is in flight is ignored.
	m, second := send(t, m, runeKey('p'))
	assert.Nil(t, second)

	m, _ = send(t, m, cmd())
	assert.Equal(t, 1, ctrl.toggles)
	assert.False(t, m.busy)
	assert.True(t, m.session.Paused)
	assert.Contains(t, m.View(), "PAUSED")
}

func TestPauseErrorIsShown(t *testing.T) {
	now := t0
	ctrl := &fakeController{toggleErr: fgerrors.NewRecorderError("failed to signal recorder", fgerrors.ErrSignalFailed).WithPID(4242)}
	m := newTestModel(ctrl, testSession(), &now)

	m, cmd := send(t, m, runeKey('p'))
	m, after := send(t, m, cmd())
	assert.False(t, isQuit(after))
	assert.Error(t, m.lastErr)
	assert.Contains(t, m.View(), "failed to signal recorder")
}

func TestPauseOnEndedRecordingCloses(t *testing.T) {
	now := t0
	ctrl := &fakeController{toggleErr: fmt.Errorf("%w: recorder (pid 4242) is no longer running", fgerrors.ErrNotRecording)}
	m := newTestModel(ctrl, testSession(), &now)

	m, cmd := send(t, m, runeKey('p'))
	m, after := send(t, m, cmd())
	assert.True(t, isQuit(after))
	assert.Equal(t, OutcomeEnded, m.Result().Outcome)
}

func TestStopKey(t *testing.T) {
	now := t0.Add(time.Minute)
	sess := testSession()
	ctrl := &fakeController{stopSession: sess, stopReport: recording.StopReport{Elapsed: time.Minute}}
	m := newTestModel(ctrl, sess, &now)

	m, cmd := send(t, m, runeKey('s'))
	require.NotNil(t, cmd)

	m, after := send(t, m, cmd())
	assert.True(t, isQuit(after))
	assert.Equal(t, 1, ctrl.stops)

	res := m.Result()
	assert.Equal(t, OutcomeStopped, res.Outcome)
	assert.Equal(t, sess, res.Session)
	assert.Equal(t, time.Minute, res.Report.Elapsed)
}

func TestStopFailureKeepsHUDOpen(t *testing.T) {
	now := t0
	ctrl := &fakeController{stopErr: errors.New("permission denied")}
	m := newTestModel(ctrl, testSession(), &now)

	m, cmd := send(t, m, runeKey('s'))
	m, after := send(t, m, cmd())
	assert.False(t, isQuit(after))
	assert.Equal(t, OutcomeDetached, m.Result().Outcome)
	assert.Contains(t, m.View(), "permission denied")

	// The user can try again.
	_, retry := send(t, m, runeKey('s'))
	assert.NotNil(t, retry)
}

func TestDetachKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		t.Run(msg.String(), func(t *testing.T) {
			now := t0
			ctrl := &fakeController{}
			m := newTestModel(ctrl, testSession(), &now)

			m, cmd := send(t, m, msg)
			assert.True(t, isQuit(cmd))
			assert.Equal(t, OutcomeDetached, m.Result().Outcome)
			assert.Zero(t, ctrl.stops, "detaching leaves the recording running")
		})
	}
}

func TestExternalChanges(t *testing.T) {
	sess := testSession()

	tests := []struct {
		name      string
		status    recording.Status
		wantQuit  bool
		wantStale bool
	}{
		{
			name:     "stopped elsewhere",
			status:   recording.Status{Phase: recording.PhaseIdle},
			wantQuit: true,
		},
		{
			name:      "recorder exited",
			status:    recording.Status{Phase: recording.PhaseStale, Session: sess},
			wantQuit:  true,
			wantStale: true,
		},
		{
			name: "replaced by another session",
			status: recording.Status{Phase: recording.PhaseRecording, Session: &state.Session{
				ID: "sess-2", PID: 7, Target: capture.Output{}, StartedAt: t0, OutputPath: "/tmp/x.mkv",
			}},
			wantQuit: true,
		},
		{
			name:   "still recording",
			status: recording.Status{Phase: recording.PhaseRecording, Session: sess},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := t0
			ctrl := &fakeController{status: tt.status}
			m := newTestModel(ctrl, testSession(), &now)

			m, cmd := send(t, m, changedMsg{})
			require.NotNil(t, cmd)

			m, after := send(t, m, m.refresh()())
			assert.Equal(t, tt.wantQuit, isQuit(after))
			if tt.wantQuit {
				assert.Equal(t, OutcomeEnded, m.Result().Outcome)
				assert.Equal(t, tt.wantStale, m.Result().Stale)
			}
		})
	}
}

func TestExternalPauseIsPickedUp(t *testing.T) {
	now := t0.Add(time.Minute)
	paused := testSession()
	paused.MarkPaused(now)
	ctrl := &fakeController{status: recording.Status{Phase: recording.PhasePaused, Session: paused}}
	m := newTestModel(ctrl, testSession(), &now)

	m, _ = send(t, m, m.refresh()())
	assert.True(t, m.paused())
}

func TestStatusErrorIsShown(t *testing.T) {
	now := t0
	ctrl := &fakeController{statusErr: fgerrors.NewStateError("state file is corrupt", fgerrors.ErrStateCorrupt).WithPath("/tmp/recording.json")}
	m := newTestModel(ctrl, testSession(), &now)

	m, after := send(t, m, m.refresh()())
	assert.False(t, isQuit(after))
	assert.Contains(t, m.View(), "/tmp/recording.json")
}

func TestWaitForChange(t *testing.T) {
	now := t0
	changes := make(chan struct{}, 1)
	m := New(context.Background(), &fakeController{}, testSession(), Options{
		Changes: changes,
		Clock:   func() time.Time { return now },
	})

	changes <- struct{}{}
	assert.Equal(t, changedMsg{}, m.waitForChange()())

	close(changes)
	assert.Nil(t, m.waitForChange()())

	assert.Nil(t, newTestModel(&fakeController{}, testSession(), &now).waitForChange())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "detached", OutcomeDetached.String())
	assert.Equal(t, "stopped", OutcomeStopped.String())
	assert.Equal(t, "ended", OutcomeEnded.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}

func TestStatusIgnoredWhileStopping(t *testing.T) {
	now := t0.Add(time.Minute)
	sess := testSession()
	ctrl := &fakeController{stopSession: sess, stopReport: recording.StopReport{Elapsed: time.Minute}}
	m := newTestModel(ctrl, sess, &now)

	m, cmd := send(t, m, runeKey('s'))
	require.NotNil(t, cmd)
	require.True(t, m.busy)

	// The stop cleared the session before its own message arrived.
	m, cmd = send(t, m, statusMsg{status: recording.Status{Phase: recording.PhaseIdle}})
	assert.Nil(t, cmd)
	assert.Equal(t, OutcomeDetached, m.Result().Outcome)

	m, cmd = send(t, m, stoppedMsg{session: sess, report: ctrl.stopReport})
	assert.True(t, isQuit(cmd))
	assert.Equal(t, OutcomeStopped, m.Result().Outcome)
	assert.Equal(t, time.Minute, m.Result().Report.Elapsed)
}
