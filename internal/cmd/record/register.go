package record

import (
	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start and control a background screen recording",
	Long: `Start and control a background screen recording.

Only one recording runs at a time. It keeps running after "record start"
returns; any later invocation can pause, resume or stop it.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Register adds the record command and its subcommands to the given parent
// command.
func Register(parent *cobra.Command) {
	RegisterStartCmd(recordCmd)
	RegisterStopCmd(recordCmd)
	RegisterPauseCmds(recordCmd)
	RegisterStatusCmd(recordCmd)
	RegisterHUDCmd(recordCmd)
	parent.AddCommand(recordCmd)
}
