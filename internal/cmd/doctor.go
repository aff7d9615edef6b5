package cmd

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/command"
	"github.com/Iron-Ham/framegrab/internal/config"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the external tools framegrab drives are installed",
	Long: `Check that the external tools framegrab drives are installed and show
where framegrab keeps its files.

The selector, screenshot and recorder tools are required. Without the
compositor, audio or clipboard tool framegrab still works: fullscreen falls
back to the default output, recordings go without audio, and screenshots are
not copied.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// toolCheck is one row of the doctor report.
type toolCheck struct {
	Role     string
	Name     string
	Required bool
	Path     string
	Found    bool
}

func checkTools(tools config.ToolsConfig, lookup func(string) (string, bool)) []toolCheck {
	checks := []toolCheck{
		{Role: "selector", Name: tools.Selector, Required: true},
		{Role: "screenshot", Name: tools.Screenshot, Required: true},
		{Role: "recorder", Name: tools.Recorder, Required: true},
		{Role: "compositor", Name: tools.Compositor},
		{Role: "audio", Name: tools.Audio},
		{Role: "clipboard", Name: tools.Clipboard},
	}
	for i := range checks {
		checks[i].Path, checks[i].Found = lookup(checks[i].Name)
	}
	return checks
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	checks := checkTools(a.Config.Tools, command.Available)
	missing := writeChecks(out, checks)

	fmt.Fprintln(out)
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile() + " (not found, using defaults)"
	}
	fmt.Fprintf(out, "%s %s\n", cli.HeaderStyle.Render("config: "), configFile)
	fmt.Fprintf(out, "%s %s\n", cli.HeaderStyle.Render("state:  "), a.StateDir)
	fmt.Fprintf(out, "%s %s\n", cli.HeaderStyle.Render("output: "), a.Namer.Root())

	if len(missing) > 0 {
		return fmt.Errorf("%w: required tool(s) missing: %v", fgerrors.ErrToolNotFound, missing)
	}
	return nil
}

// writeChecks prints one line per check and returns the missing required tools.
func writeChecks(w io.Writer, checks []toolCheck) []string {
	var missing []string
	for _, c := range checks {
		var status string
		switch {
		case c.Found:
			status = cli.SuccessStyle.Render("ok") + "       " + c.Path
		case c.Required:
			status = cli.ErrorStyle.Render("missing") + "  required"
			missing = append(missing, c.Name)
		default:
			status = cli.WarnStyle.Render("missing") + "  optional"
		}
		fmt.Fprintf(w, "%-11s %-14s %s\n", c.Role, c.Name, status)
	}
	return missing
}
