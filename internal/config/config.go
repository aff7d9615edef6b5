package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete framegrab configuration
type Config struct {
	Tools      ToolsConfig      `mapstructure:"tools"`
	Recording  RecordingConfig  `mapstructure:"recording"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	HUD        HUDConfig        `mapstructure:"hud"`
}

// ToolsConfig names the external programs framegrab drives.
// Each value is looked up in PATH unless it is an absolute path.
type ToolsConfig struct {
	// Selector prints a "X,Y WxH" geometry for an interactively chosen region (default: "slurp")
	Selector string `mapstructure:"selector"`
	// Screenshot captures a still image (default: "grim")
	Screenshot string `mapstructure:"screenshot"`
	// Recorder captures video until interrupted (default: "wf-recorder")
	Recorder string `mapstructure:"recorder"`
	// Compositor answers focused-output and window queries (default: "niri")
	Compositor string `mapstructure:"compositor"`
	// Audio answers default-sink queries (default: "pactl")
	Audio string `mapstructure:"audio"`
	// Clipboard receives screenshots when copy is requested (default: "wl-copy")
	Clipboard string `mapstructure:"clipboard"`
}

// RecordingConfig controls how the recorder is launched
type RecordingConfig struct {
	// Extension is the container extension of recording files, without a dot (default: "mkv")
	Extension string `mapstructure:"extension"`
	// ExtraArgs are passed to the recorder before the output flag
	ExtraArgs []string `mapstructure:"extra_args"`
}

// ScreenshotConfig controls screenshot behavior
type ScreenshotConfig struct {
	// CopyToClipboard copies every screenshot to the clipboard (default: false)
	CopyToClipboard bool `mapstructure:"copy_to_clipboard"`
}

// AudioConfig controls what happens when audio is requested
type AudioConfig struct {
	// Policy decides what a failed default-device lookup does to a recording start.
	// Options: "best_effort", "recorder_default", "required" (default: "best_effort")
	Policy string `mapstructure:"policy"`
}

// Audio policies
const (
	// AudioPolicyBestEffort records without an audio track when no device is found.
	AudioPolicyBestEffort = "best_effort"
	// AudioPolicyRecorderDefault lets the recorder pick its own default source.
	AudioPolicyRecorderDefault = "recorder_default"
	// AudioPolicyRequired refuses to start without a resolved device.
	AudioPolicyRequired = "required"
)

// TimeoutsConfig bounds every wait on an external process
type TimeoutsConfig struct {
	// QueryMs bounds compositor, audio and clipboard queries (default: 3000)
	QueryMs int `mapstructure:"query_ms"`
	// SelectionMs bounds interactive region selection; 0 waits indefinitely (default: 0)
	SelectionMs int `mapstructure:"selection_ms"`
	// StopGraceMs is how long a recorder may take to finalize after SIGINT before SIGKILL (default: 5000)
	StopGraceMs int `mapstructure:"stop_grace_ms"`
	// StopPollMs is the liveness polling interval while waiting for exit (default: 100)
	StopPollMs int `mapstructure:"stop_poll_ms"`
	// StartupCheckMs is how long a freshly launched recorder is watched for an immediate exit; 0 disables the check (default: 250)
	StartupCheckMs int `mapstructure:"startup_check_ms"`
}

// PathsConfig controls where framegrab stores data
type PathsConfig struct {
	// OutputDir is the root for screenshots/ and recordings/.
	// If empty, defaults to $XDG_PICTURES_DIR/framegrab or ~/Pictures/framegrab.
	// Supports ~ for home directory expansion.
	OutputDir string `mapstructure:"output_dir"`
	// StateDir holds recording.json, its lock and the log file.
	// FRAMEGRAB_STATE_DIR takes precedence over this value.
	StateDir string `mapstructure:"state_dir"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	// Enabled controls whether logs are written to the state directory (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 2)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 2)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress"`
}

// HUDConfig controls the terminal recording HUD
type HUDConfig struct {
	// BlinkIntervalMs is the recording indicator blink period (default: 500)
	BlinkIntervalMs int `mapstructure:"blink_interval_ms"`
	// ShowOnStart opens the HUD after every "record start" (default: false)
	ShowOnStart bool `mapstructure:"show_on_start"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Tools: ToolsConfig{
			Selector:   "slurp",
			Screenshot: "grim",
			Recorder:   "wf-recorder",
			Compositor: "niri",
			Audio:      "pactl",
			Clipboard:  "wl-copy",
		},
		Recording: RecordingConfig{
			Extension: "mkv",
			ExtraArgs: []string{},
		},
		Screenshot: ScreenshotConfig{
			CopyToClipboard: false,
		},
		Audio: AudioConfig{
			Policy: AudioPolicyBestEffort,
		},
		Timeouts: TimeoutsConfig{
			QueryMs:        3000,
			SelectionMs:    0,
			StopGraceMs:    5000,
			StopPollMs:     100,
			StartupCheckMs: 250,
		},
		Paths: PathsConfig{
			OutputDir: "",
			StateDir:  "",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  2,
			MaxBackups: 2,
			Compress:   false,
		},
		HUD: HUDConfig{
			BlinkIntervalMs: 500,
			ShowOnStart:     false,
		},
	}
}

// Query returns the query timeout as a time.Duration
func (c *TimeoutsConfig) Query() time.Duration {
	return time.Duration(c.QueryMs) * time.Millisecond
}

// Selection returns the region selection timeout (0 means no limit)
func (c *TimeoutsConfig) Selection() time.Duration {
	return time.Duration(c.SelectionMs) * time.Millisecond
}

// StopGrace returns the graceful stop window as a time.Duration
func (c *TimeoutsConfig) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMs) * time.Millisecond
}

// StopPoll returns the liveness polling interval as a time.Duration
func (c *TimeoutsConfig) StopPoll() time.Duration {
	return time.Duration(c.StopPollMs) * time.Millisecond
}

// StartupCheck returns the post-launch exit watch as a time.Duration
func (c *TimeoutsConfig) StartupCheck() time.Duration {
	return time.Duration(c.StartupCheckMs) * time.Millisecond
}

// BlinkInterval returns the HUD blink period as a time.Duration
func (c *HUDConfig) BlinkInterval() time.Duration {
	return time.Duration(c.BlinkIntervalMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Tools defaults
	viper.SetDefault("tools.selector", defaults.Tools.Selector)
	viper.SetDefault("tools.screenshot", defaults.Tools.Screenshot)
	viper.SetDefault("tools.recorder", defaults.Tools.Recorder)
	viper.SetDefault("tools.compositor", defaults.Tools.Compositor)
	viper.SetDefault("tools.audio", defaults.Tools.Audio)
	viper.SetDefault("tools.clipboard", defaults.Tools.Clipboard)

	// Recording defaults
	viper.SetDefault("recording.extension", defaults.Recording.Extension)
	viper.SetDefault("recording.extra_args", defaults.Recording.ExtraArgs)

	// Screenshot defaults
	viper.SetDefault("screenshot.copy_to_clipboard", defaults.Screenshot.CopyToClipboard)

	// Audio defaults
	viper.SetDefault("audio.policy", defaults.Audio.Policy)

	// Timeout defaults
	viper.SetDefault("timeouts.query_ms", defaults.Timeouts.QueryMs)
	viper.SetDefault("timeouts.selection_ms", defaults.Timeouts.SelectionMs)
	viper.SetDefault("timeouts.stop_grace_ms", defaults.Timeouts.StopGraceMs)
	viper.SetDefault("timeouts.stop_poll_ms", defaults.Timeouts.StopPollMs)
	viper.SetDefault("timeouts.startup_check_ms", defaults.Timeouts.StartupCheckMs)

	// Paths defaults
	viper.SetDefault("paths.output_dir", defaults.Paths.OutputDir)
	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// HUD defaults
	viper.SetDefault("hud.blink_interval_ms", defaults.HUD.BlinkIntervalMs)
	viper.SetDefault("hud.show_on_start", defaults.HUD.ShowOnStart)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "framegrab")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".framegrab"
	}
	return filepath.Join(home, ".config", "framegrab")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExpandHome expands a leading ~ to the user's home directory.
// Paths without ~, or when the home directory is unknown, are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ValidAudioPolicies returns the list of valid audio.policy values
func ValidAudioPolicies() []string {
	return []string{AudioPolicyBestEffort, AudioPolicyRecorderDefault, AudioPolicyRequired}
}
