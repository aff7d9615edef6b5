package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/cmd/record"
	"github.com/Iron-Ham/framegrab/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "framegrab",
	Short: "Screenshot and screen recording for Wayland compositors",
	Long: `framegrab captures a screen region, the focused output or a single
window on a Wayland compositor. Recordings run in the background and are
controlled by later invocations: start one, then pause, resume or stop it
from any terminal, or watch it in the recording HUD.`,
	Args: cli.Args(cobra.NoArgs),
	// Runnable so that stray arguments reach Args and fail as usage errors.
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context; a recording already running is not affected.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Main runs the command line, reports a failure as one line on stderr and
// returns the process exit code.
func Main() int {
	err := Execute()
	cli.Report(os.Stderr, err)
	return cli.ExitCode(err)
}

// SetVersion sets the version string shown by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/framegrab/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &cli.UsageError{Err: err}
	})

	record.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FRAMEGRAB")
	// Replace dots with underscores for nested keys in env vars
	// e.g., FRAMEGRAB_AUDIO_POLICY for audio.policy
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
