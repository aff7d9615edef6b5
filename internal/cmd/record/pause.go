package record

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/state"
	"github.com/Iron-Ham/framegrab/internal/util"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the recording",
	Long:  `Pause the recording. Paused time is excluded from the elapsed time. Pausing a paused recording does nothing.`,
	Args:  cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, (*recording.Controller).Pause)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused recording",
	Args:  cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, (*recording.Controller).Resume)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Pause a running recording or resume a paused one",
	Args:  cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, (*recording.Controller).TogglePause)
	},
}

// RegisterPauseCmds registers pause, resume and toggle with the given parent command.
func RegisterPauseCmds(parent *cobra.Command) {
	parent.AddCommand(pauseCmd)
	parent.AddCommand(resumeCmd)
	parent.AddCommand(toggleCmd)
}

type transition func(*recording.Controller, context.Context) (*state.Session, error)

func runTransition(cmd *cobra.Command, do transition) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := do(a.Controller, cmd.Context())
	if err != nil {
		return err
	}

	elapsed := util.FormatClock(sess.Elapsed(a.Controller.Now()))
	if sess.Paused {
		fmt.Fprintf(cmd.OutOrStdout(), "Recording paused at %s\n", elapsed)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Recording resumed at %s\n", elapsed)
	}
	return nil
}
