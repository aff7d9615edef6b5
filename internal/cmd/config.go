package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Iron-Ham/framegrab/internal/cmd/cli"
	"github.com/Iron-Ham/framegrab/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify framegrab configuration",
	Long: `View or modify framegrab configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cli.Args(cobra.NoArgs),
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  framegrab config set tools.recorder wl-screenrec
  framegrab config set audio.policy required
  framegrab config set timeouts.stop_grace_ms 10000
  framegrab config set recording.extra_args "-c,h264_vaapi"

Run 'framegrab config show' to see every key. List values are comma separated.`,
	Args: cli.Args(cobra.ExactArgs(2)),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/framegrab/config.yaml with all available options.`,
	Args:  cli.Args(cobra.NoArgs),
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	Args:  cli.Args(cobra.NoArgs),
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "# Config file: (none - using defaults)\n")
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(viper.AllSettings()); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

// parseConfigValue converts raw to the type of the key's default value.
func parseConfigValue(key, raw string) (any, error) {
	if !slices.Contains(viper.AllKeys(), key) || key == "config" {
		return nil, cli.Usagef("unknown configuration key: %s (run 'framegrab config show' to see valid keys)", key)
	}

	switch viper.Get(key).(type) {
	case bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, cli.Usagef("invalid value for %s: expected true or false", key)
		}
		return v, nil
	case int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, cli.Usagef("invalid value for %s: expected integer", key)
		}
		return v, nil
	case []string, []any:
		if raw == "" {
			return []string{}, nil
		}
		return strings.Split(raw, ","), nil
	default:
		return raw, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])
	value, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	viper.Set(key, value)

	// Refuse to write a file that would not load.
	if _, err := config.Load(); err != nil {
		return cli.Usagef("invalid value for %s: %v", key, err)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, value)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// defaultConfigFile is written by 'config init'.
const defaultConfigFile = `# framegrab configuration

# External programs. Each is looked up in PATH unless it is an absolute path.
tools:
  selector: slurp
  screenshot: grim
  recorder: wf-recorder
  compositor: niri
  audio: pactl
  clipboard: wl-copy

recording:
  # Container extension of recording files
  extension: mkv
  # Extra recorder arguments, passed before the output flag
  extra_args: []

screenshot:
  copy_to_clipboard: false

audio:
  # What a failed default-device lookup does when audio is requested:
  #   best_effort       record without audio and warn
  #   recorder_default  let the recorder pick its own source
  #   required          refuse to start
  policy: best_effort

timeouts:
  query_ms: 3000
  # 0 waits for the region selection indefinitely
  selection_ms: 0
  stop_grace_ms: 5000
  stop_poll_ms: 100
  startup_check_ms: 250

paths:
  # Screenshots and recordings go under <output_dir>/screenshots and
  # <output_dir>/recordings. Empty means $XDG_PICTURES_DIR/framegrab.
  output_dir: ""
  # Session state and logs. Empty means $XDG_STATE_HOME/framegrab.
  state_dir: ""

logging:
  enabled: true
  level: info
  max_size_mb: 2
  max_backups: 2
  compress: false

hud:
  blink_interval_ms: 500
  show_on_start: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s (use 'framegrab config set' to modify values)", configFile)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize framegrab's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}
	fmt.Fprintln(out, "\nEnvironment variables: FRAMEGRAB_* (e.g., FRAMEGRAB_AUDIO_POLICY for audio.policy)")
	return nil
}
