// Package hud is the terminal heads-up display shown while recording. It
// shows the elapsed time excluding pauses and a blinking indicator, and
// binds keys to pause/resume and stop. It closes itself when the recording
// is stopped by another invocation or the recorder exits.
package hud

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/framegrab/internal/capture"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/state"
	"github.com/Iron-Ham/framegrab/internal/util"
)

// Controller is the part of the lifecycle controller the HUD drives.
type Controller interface {
	TogglePause(ctx context.Context) (*state.Session, error)
	Stop(ctx context.Context) (*state.Session, recording.StopReport, error)
	Status(ctx context.Context) (recording.Status, error)
}

// Outcome says why the HUD closed.
type Outcome int

const (
	// OutcomeDetached means the user closed the HUD and the recording continues.
	OutcomeDetached Outcome = iota
	// OutcomeStopped means the HUD stopped the recording.
	OutcomeStopped
	// OutcomeEnded means the recording ended elsewhere: another invocation
	// stopped it or the recorder exited.
	OutcomeEnded
)

// Result is what the HUD reports after it closes.
type Result struct {
	Outcome Outcome
	Session *state.Session
	// Report is set for OutcomeStopped.
	Report recording.StopReport
	// Stale is set for OutcomeEnded when the session is still stored but its
	// recorder is gone.
	Stale bool
}

// Options configures a Model.
type Options struct {
	BlinkInterval time.Duration
	// Changes signals that the session file changed.
	Changes <-chan struct{}
	Clock   func() time.Time
}

// DefaultBlinkInterval is used when Options.BlinkInterval is not positive.
const DefaultBlinkInterval = 500 * time.Millisecond

const refreshInterval = time.Second

var (
	indicatorOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	indicatorOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5F0000"))
	pausedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")).Bold(true)
	timerStyle        = lipgloss.NewStyle().Bold(true)
	targetStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

type (
	refreshMsg struct{}
	blinkMsg   struct{}
	changedMsg struct{}
	statusMsg  struct {
		status recording.Status
		err    error
	}
	toggledMsg struct {
		session *state.Session
		err     error
	}
	stoppedMsg struct {
		session *state.Session
		report  recording.StopReport
		err     error
	}
)

// Model is the bubbletea model of the HUD.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	keys    KeyMap
	help    help.Model
	now     func() time.Time
	blink   time.Duration
	changes <-chan struct{}

	session *state.Session
	visible bool
	busy    bool
	width   int
	lastErr error
	result  Result
}

// New creates a HUD for a running session.
func New(ctx context.Context, ctrl Controller, sess *state.Session, opts Options) Model {
	if opts.BlinkInterval <= 0 {
		opts.BlinkInterval = DefaultBlinkInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		now:     opts.Clock,
		blink:   opts.BlinkInterval,
		changes: opts.Changes,
		session: sess,
		visible: true,
		result:  Result{Outcome: OutcomeDetached, Session: sess},
	}
}

// Result returns why the HUD closed.
func (m Model) Result() Result {
	return m.result
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scheduleRefresh(), m.scheduleBlink(), m.waitForChange())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case refreshMsg:
		return m, tea.Batch(m.refresh(), m.scheduleRefresh())

	case changedMsg:
		return m, tea.Batch(m.refresh(), m.waitForChange())

	case blinkMsg:
		if m.paused() {
			m.visible = true
		} else {
			m.visible = !m.visible
		}
		return m, m.scheduleBlink()

	case statusMsg:
		return m.handleStatus(msg)

	case toggledMsg:
		m.busy = false
		if msg.err != nil {
			if fgerrors.Is(msg.err, fgerrors.ErrNotRecording) {
				m.result = Result{Outcome: OutcomeEnded, Session: m.session}
				return m, tea.Quit
			}
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.session = msg.session
		m.visible = true
		return m, nil

	case stoppedMsg:
		m.busy = false
		if msg.err != nil {
			if fgerrors.Is(msg.err, fgerrors.ErrNotRecording) {
				m.result = Result{Outcome: OutcomeEnded, Session: m.session}
				return m, tea.Quit
			}
			m.lastErr = msg.err
			return m, nil
		}
		m.result = Result{Outcome: OutcomeStopped, Session: msg.session, Report: msg.report}
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Detach):
		m.result = Result{Outcome: OutcomeDetached, Session: m.session}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.togglePause()
	case key.Matches(msg, m.keys.Stop):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.stop()
	}
	return m, nil
}

func (m Model) handleStatus(msg statusMsg) (tea.Model, tea.Cmd) {
	// The pending action reports its own outcome.
	if m.busy {
		return m, nil
	}
	if msg.err != nil {
		m.lastErr = msg.err
		return m, nil
	}

	switch msg.status.Phase {
	case recording.PhaseIdle:
		m.result = Result{Outcome: OutcomeEnded, Session: m.session}
		return m, tea.Quit
	case recording.PhaseStale:
		m.result = Result{Outcome: OutcomeEnded, Session: msg.status.Session, Stale: true}
		return m, tea.Quit
	}

	// A new session under the same state file is not ours to display.
	if m.session != nil && msg.status.Session.ID != m.session.ID {
		m.result = Result{Outcome: OutcomeEnded, Session: m.session}
		return m, tea.Quit
	}
	m.session = msg.status.Session
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.session == nil {
		return ""
	}

	var indicator string
	switch {
	case m.paused():
		indicator = pausedStyle.Render("❚❚ PAUSED")
	case m.visible:
		indicator = indicatorOnStyle.Render("● REC")
	default:
		indicator = indicatorOffStyle.Render("● REC")
	}

	line := fmt.Sprintf("%s  %s  %s",
		indicator,
		timerStyle.Render(util.FormatClock(m.session.Elapsed(m.now()))),
		targetStyle.Render(capture.Describe(m.session.Target)),
	)
	if m.width > 0 {
		line = util.Truncate(line, m.width)
	}

	view := line + "\n" + m.help.View(m.keys)
	if m.lastErr != nil {
		msg := fgerrors.UserMessage(m.lastErr)
		if m.width > 0 {
			msg = util.Truncate(msg, m.width)
		}
		view += "\n" + errorStyle.Render(msg)
	}
	return view + "\n"
}

func (m Model) paused() bool {
	return m.session != nil && m.session.Paused
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m Model) scheduleBlink() tea.Cmd {
	return tea.Tick(m.blink, func(time.Time) tea.Msg {
		return blinkMsg{}
	})
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		st, err := ctrl.Status(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) togglePause() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		sess, err := ctrl.TogglePause(ctx)
		return toggledMsg{session: sess, err: err}
	}
}

func (m Model) stop() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		sess, report, err := ctrl.Stop(ctx)
		return stoppedMsg{session: sess, report: report, err: err}
	}
}
