package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/util"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List compositor windows",
	Long: `List the compositor's windows, focused first. The ID column is what
'framegrab screenshot window --window-id' expects.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runWindows,
}

var windowsFormat string

// Column widths for the text table
const (
	windowsAppWidth   = 24
	windowsTitleWidth = 60
)

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "o", "text", "Output format: text, yaml or json")
}

func runWindows(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(windowsFormat)
	switch format {
	case "text", "yaml", "json":
	default:
		return cli.Usagef("unsupported format %q (supported: text, yaml, json)", windowsFormat)
	}

	a, err := app.Load()
	if err != nil {
		return err
	}
	defer a.Close()

	windows, err := a.Targets.ListWindows(cmd.Context())
	if err != nil {
		return err
	}
	return writeWindows(cmd.OutOrStdout(), windows, format)
}

func writeWindows(w io.Writer, windows []capture.WindowInfo, format string) error {
	if windows == nil {
		windows = []capture.WindowInfo{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(windows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(windows); err != nil {
			return fmt.Errorf("failed to encode windows: %w", err)
		}
		return enc.Close()
	}

	if len(windows) == 0 {
		_, err := fmt.Fprintln(w, "No windows.")
		return err
	}

	header := fmt.Sprintf("  %-8s %-4s %s %s", "ID", "WS", util.PadRight("APP", windowsAppWidth), "TITLE")
	if _, err := fmt.Fprintln(w, cli.HeaderStyle.Render(header)); err != nil {
		return err
	}
	for _, win := range windows {
		marker := " "
		if win.IsFocused {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-8d %-4d %s %s",
			marker,
			win.ID,
			win.WorkspaceID,
			util.PadRight(win.AppID, windowsAppWidth),
			util.Truncate(win.Title, windowsTitleWidth),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
