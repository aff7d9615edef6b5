package record

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Iron-Ham/framegrab/internal/app"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/util"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current recording",
	Long: `Show whether a recording is running, paused or stale, with its target,
output file and elapsed time. Nothing is changed.

A stale recording is one whose recorder has exited without "record stop";
run "framegrab record stop" to clear it.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runStatus,
}

var statusFormat string

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "o", "text", "Output format: text, yaml or json")
}

// RegisterStatusCmd registers the status command with the given parent command.
func RegisterStatusCmd(parent *cobra.Command) {
	parent.AddCommand(statusCmd)
}

// statusView is the rendered form of a recording.Status.
type statusView struct {
	State       string `json:"state" yaml:"state"`
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	PID         int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty"`
	Output      string `json:"output,omitempty" yaml:"output,omitempty"`
	StartedAt   string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Elapsed     string `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Audio       bool   `json:"audio" yaml:"audio"`
	AudioDevice string `json:"audio_device,omitempty" yaml:"audio_device,omitempty"`
	StateFile   string `json:"state_file" yaml:"state_file"`
}

func newStatusView(st recording.Status, statePath string) statusView {
	v := statusView{State: string(st.Phase), StateFile: statePath}
	if sess := st.Session; sess != nil {
		v.ID = sess.ID
		v.PID = sess.PID
		v.Target = capture.Describe(sess.Target)
		v.Output = sess.OutputPath
		v.StartedAt = sess.StartedAt.Format(time.RFC3339)
		v.Elapsed = util.FormatClock(st.Elapsed)
		v.Audio = sess.AudioEnabled
		v.AudioDevice = sess.AudioDevice
	}
	return v
}

func runStatus(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(statusFormat)
	switch format {
	case "text", "yaml", "json":
	default:
		return cli.Usagef("unsupported format %q (supported: text, yaml, json)", statusFormat)
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
	return writeStatus(cmd.OutOrStdout(), newStatusView(st, a.Controller.StatePath()), format)
}

func writeStatus(w io.Writer, v statusView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		return enc.Close()
	}

	if v.State == string(recording.PhaseIdle) {
		_, err := fmt.Fprintln(w, "Not recording.")
		return err
	}

	state := v.State
	switch recording.Phase(v.State) {
	case recording.PhaseRecording:
		state = cli.SuccessStyle.Render(state)
	case recording.PhasePaused:
		state = cli.WarnStyle.Render(state)
	case recording.PhaseStale:
		state = cli.ErrorStyle.Render(state + " (recorder exited; run 'framegrab record stop' to clear)")
	}

	audio := "off"
	if v.Audio {
		audio = v.AudioDevice
		if audio == "" {
			audio = "recorder default"
		}
	}

	rows := [][2]string{
		{"State", state},
		{"Target", v.Target},
		{"Elapsed", v.Elapsed},
		{"Output", v.Output},
		{"Audio", audio},
		{"PID", fmt.Sprint(v.PID)},
		{"Started", v.StartedAt},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s %s\n", cli.HeaderStyle.Render(fmt.Sprintf("%-8s", row[0]+":")), row[1]); err != nil {
			return err
		}
	}
	return nil
}
