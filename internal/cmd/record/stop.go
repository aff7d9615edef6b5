package record

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/state"
	"github.com/Iron-Ham/framegrab/internal/util"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the recording and finalize the file",
	Long: `Stop the recording. The recorder is asked to finish writing its file
and is killed if it does not exit within timeouts.stop_grace_ms.

A session left behind by a recorder that already exited is cleared.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runStop,
}

// RegisterStopCmd registers the stop command with the given parent command.
func RegisterStopCmd(parent *cobra.Command) {
	parent.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	sess, report, err := a.Controller.Stop(cmd.Context())
	if err != nil {
		return err
	}
	printStopped(cmd.OutOrStdout(), cmd.ErrOrStderr(), sess, report)
	return nil
}

func printStopped(out, errOut io.Writer, sess *state.Session, report recording.StopReport) {
	switch {
	case report.AlreadyGone:
		cli.Warnf(errOut, "recorder (pid %d) had already exited; cleared its session", sess.PID)
	case report.Forced:
		cli.Warnf(errOut, "recorder did not exit in time and was killed; the file may be incomplete")
	}
	fmt.Fprintln(out, cli.SuccessStyle.Render(fmt.Sprintf("Recording stopped after %s", util.FormatClock(report.Elapsed))))
	fmt.Fprintf(out, "Saved to %s\n", sess.OutputPath)
}
