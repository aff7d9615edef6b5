package record

import (
	"fmt"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start {region|fullscreen}",
	Short: "Start recording in the background",
	Long: `Start recording a selected region or the focused output.

"region" runs the interactive selector first. "fullscreen" records the
focused output, or the compositor's default output when the focused one
cannot be determined. The recorder keeps running after this command returns.

Examples:
  # Record a region with desktop audio
  framegrab record start region --audio

  # Record the focused output and watch it in the HUD
  framegrab record start fullscreen --hud`,
	Args:      cli.Args(cobra.ExactArgs(1)),
	ValidArgs: []string{string(capture.ModeRegion), string(capture.ModeFullscreen)},
	RunE:      runStart,
}

var (
	startAudio bool
	startHUD   bool
)

func init() {
	startCmd.Flags().BoolVarP(&startAudio, "audio", "a", false, "Record the default output's audio")
	startCmd.Flags().BoolVar(&startHUD, "hud", false, "Show the recording HUD after starting (default from hud.show_on_start)")
}

// RegisterStartCmd registers the start command with the given parent command.
func RegisterStartCmd(parent *cobra.Command) {
	parent.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	mode, err := capture.ParseMode(args[0])
	if err != nil || mode == capture.ModeWindow {
		return cli.Usagef("unknown recording mode %q (want region or fullscreen)", args[0])
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	sess, report, err := a.Controller.Start(cmd.Context(), recording.StartOptions{
		Mode:  mode,
		Audio: startAudio,
	})
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	if report.TargetFellBack {
		cli.Warnf(errOut, "focused output unknown, recording the default output: %s", fgerrors.UserMessage(report.TargetDiagnostic))
	}
	if report.AudioOmitted {
		cli.Warnf(errOut, "recording without audio: %s", fgerrors.UserMessage(report.AudioDiagnostic))
	} else if sess.AudioEnabled && sess.AudioDevice == "" {
		cli.Warnf(errOut, "default audio device unknown, the recorder will pick its own source")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.SuccessStyle.Render(fmt.Sprintf("Recording %s (pid %d)", capture.Describe(sess.Target), sess.PID)))
	fmt.Fprintf(out, "Output: %s\n", sess.OutputPath)

	showHUD := a.Config.HUD.ShowOnStart
	if cmd.Flags().Changed("hud") {
		showHUD = startHUD
	}
	if showHUD && !cli.IsTerminal(out) {
		if cmd.Flags().Changed("hud") {
			cli.Warnf(errOut, "output is not a terminal, not showing the HUD")
		}
		showHUD = false
	}
	if !showHUD {
		fmt.Fprintln(out, cli.MutedStyle.Render("Stop it with 'framegrab record stop'."))
		return nil
	}
	return attachHUD(cmd, a, sess)
}
