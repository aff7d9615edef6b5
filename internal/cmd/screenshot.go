package cmd

import (
	"fmt"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/Iron-Ham/framegrab/internal/screenshot"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:     "screenshot {region|fullscreen|window}",
	Aliases: []string{"shot"},
	Short:   "Take a screenshot",
	Long: `Take a screenshot of a selected region, the focused output or a window.

Images are saved under <output_dir>/screenshots. When the compositor does not
support per-window capture, the window is focused and the compositor's own
screenshot action is used instead; the image then lands wherever the
compositor saves screenshots.

Examples:
  # Select a region and copy the result to the clipboard
  framegrab screenshot region --copy

  # Capture window 42 (see 'framegrab windows')
  framegrab screenshot window --window-id 42`,
	Args:      cli.Args(cobra.ExactArgs(1)),
	ValidArgs: []string{string(capture.ModeRegion), string(capture.ModeFullscreen), string(capture.ModeWindow)},
	RunE:      runScreenshot,
}

var (
	screenshotCopy     bool
	screenshotWindowID uint64
)

func init() {
	rootCmd.AddCommand(screenshotCmd)

	screenshotCmd.Flags().BoolVar(&screenshotCopy, "copy", false, "Copy the image to the clipboard (default from screenshot.copy_to_clipboard)")
	screenshotCmd.Flags().Uint64Var(&screenshotWindowID, "window-id", 0, "Window to capture in window mode (default: the focused window)")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	mode, err := capture.ParseMode(args[0])
	if err != nil {
		return cli.Usagef("unknown screenshot mode %q (want region, fullscreen or window)", args[0])
	}
	if cmd.Flags().Changed("window-id") && mode != capture.ModeWindow {
		return cli.Usagef("--window-id only applies to window mode")
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	copyImage := a.Config.Screenshot.CopyToClipboard
	if cmd.Flags().Changed("copy") {
		copyImage = screenshotCopy
	}

	res, err := a.Screenshots.Capture(cmd.Context(), screenshot.Options{
		Mode:     mode,
		WindowID: screenshotWindowID,
		Copy:     copyImage,
	})
	if err != nil {
		return err
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if res.TargetFellBack {
		cli.Warnf(errOut, "focused output unknown, captured the default output: %s", fgerrors.UserMessage(res.TargetDiagnostic))
	}

	if res.ViaCompositor {
		fmt.Fprintln(out, cli.SuccessStyle.Render(fmt.Sprintf("Screenshot of %s taken by %s", capture.Describe(res.Target), a.Config.Tools.Compositor)))
		fmt.Fprintln(out, cli.MutedStyle.Render("Saved to the compositor's screenshot location."))
		return nil
	}

	fmt.Fprintln(out, cli.SuccessStyle.Render(fmt.Sprintf("Saved screenshot of %s", capture.Describe(res.Target))))
	fmt.Fprintln(out, res.Path)
	switch {
	case res.Copied:
		fmt.Fprintln(out, cli.MutedStyle.Render("Copied to clipboard."))
	case res.ClipboardErr != nil:
		cli.Warnf(errOut, "not copied to clipboard: %s", fgerrors.UserMessage(res.ClipboardErr))
	}
	return nil
}
