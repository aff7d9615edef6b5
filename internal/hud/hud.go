package hud

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/framegrab/internal/logging"
	"github.com/Iron-Ham/framegrab/internal/state"
)

// RunOptions configures Run.
type RunOptions struct {
	// StatePath is the session file to watch.
	StatePath     string
	BlinkInterval time.Duration
	Input         io.Reader
	Output        io.Writer
	Logger        *logging.Logger
}

// Run shows the HUD for sess until the user detaches or stops it, or the
// recording ends elsewhere.
func Run(ctx context.Context, ctrl Controller, sess *state.Session, opts RunOptions) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithOperation("hud").WithSession(sess.ID)

	modelOpts := Options{BlinkInterval: opts.BlinkInterval}
	if opts.StatePath != "" {
		w, err := NewWatcher(opts.StatePath, DefaultDebounce)
		if err == nil {
			var changes <-chan struct{}
			changes, err = w.Start()
			if err == nil {
				defer func() { _ = w.Stop() }()
				modelOpts.Changes = changes
			} else {
				_ = w.Stop()
			}
		}
		// The periodic status refresh still notices an external stop.
		if err != nil {
			logger.Warn("state watcher unavailable", "path", opts.StatePath, "error", err.Error())
		}
	}

	var programOpts []tea.ProgramOption
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	program := tea.NewProgram(New(ctx, ctrl, sess, modelOpts), programOpts...)

	// Detach on termination signals; the recording keeps running.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			program.Quit()
		case <-ctx.Done():
			program.Quit()
		case <-done:
		}
	}()

	logger.Info("hud opened")
	final, err := program.Run()
	if err != nil {
		return Result{}, fmt.Errorf("running hud: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Result{Outcome: OutcomeDetached, Session: sess}, nil
	}
	res := m.Result()
	logger.Info("hud closed", "outcome", res.Outcome.String())
	return res, nil
}

// String returns a short name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDetached:
		return "detached"
	case OutcomeStopped:
		return "stopped"
	case OutcomeEnded:
		return "ended"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}
