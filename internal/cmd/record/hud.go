package record

import (
	"fmt"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/hud"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/state"
	"github.com/spf13/cobra"
)

var hudCmd = &cobra.Command{
	Use:   "hud",
	Short: "Show the recording HUD for the current recording",
	Long: `Show a small terminal HUD with the elapsed time and a blinking
indicator. Keys: p pauses or resumes, s stops, q closes the HUD and leaves
the recording running. The HUD closes by itself when the recording is
stopped from another terminal.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runHUD,
}

// RegisterHUDCmd registers the hud command with the given parent command.
func RegisterHUDCmd(parent *cobra.Command) {
	parent.AddCommand(hudCmd)
}

func runHUD(cmd *cobra.Command, args []string) error {
	if !cli.IsTerminal(cmd.OutOrStdout()) {
		return fmt.Errorf("%w: the HUD needs a terminal", fgerrors.ErrInvalidInput)
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Controller.Status(cmd.Context())
	if err != nil {
		return err
	}
	switch st.Phase {
	case recording.PhaseIdle:
		return fmt.Errorf("%w to show", fgerrors.ErrNotRecording)
	case recording.PhaseStale:
		return fmt.Errorf("%w: recorder (pid %d) is no longer running", fgerrors.ErrNotRecording, st.Session.PID)
	}
	return attachHUD(cmd, a, st.Session)
}

func attachHUD(cmd *cobra.Command, a *app.App, sess *state.Session) error {
	res, err := hud.Run(cmd.Context(), a.Controller, sess, hud.RunOptions{
		StatePath:     a.Store.Path(),
		BlinkInterval: a.Config.HUD.BlinkInterval(),
		Input:         cmd.InOrStdin(),
		Output:        cmd.OutOrStdout(),
		Logger:        a.Logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch res.Outcome {
	case hud.OutcomeStopped:
		printStopped(out, cmd.ErrOrStderr(), res.Session, res.Report)
	case hud.OutcomeEnded:
		if res.Stale {
			cli.Warnf(cmd.ErrOrStderr(), "recorder exited; run 'framegrab record stop' to clear its session")
		} else {
			fmt.Fprintln(out, "Recording ended.")
		}
	default:
		fmt.Fprintln(out, cli.MutedStyle.Render("HUD closed; the recording continues. Stop it with 'framegrab record stop'."))
	}
	return nil
}
