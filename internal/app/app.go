// Package app assembles framegrab's components from configuration.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/framegrab/internal/artifact"
	"github.com/Iron-Ham/framegrab/internal/audio"
	"github.com/Iron-Ham/framegrab/internal/capture"
	"github.com/Iron-Ham/framegrab/internal/command"
	"github.com/Iron-Ham/framegrab/internal/config"
	"github.com/Iron-Ham/framegrab/internal/logging"
	"github.com/Iron-Ham/framegrab/internal/recorder"
	"github.com/Iron-Ham/framegrab/internal/recording"
	"github.com/Iron-Ham/framegrab/internal/screenshot"
	"github.com/Iron-Ham/framegrab/internal/state"
)

// App holds the wired components used by the commands.
type App struct {
	Config *config.Config
	Logger *logging.Logger

	StateDir string
	Store    *state.Store
	Namer    *artifact.Namer

	Targets     *capture.Resolver
	Devices     *audio.Resolver
	Recorder    *recorder.Supervisor
	Controller  *recording.Controller
	Screenshots *screenshot.Service
}

// Load reads the configuration from viper and builds an App.
func Load() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return New(cfg, os.Stderr), nil
}

// New builds an App from cfg. Logger creation problems are reported to
// warnings and never fail the build.
func New(cfg *config.Config, warnings io.Writer) *App {
	stateDir := state.ResolveDir(config.ExpandHome(cfg.Paths.StateDir))
	logger := CreateLogger(stateDir, cfg, warnings)

	query := command.NewExecRunner(cfg.Timeouts.Query())
	interactive := query.WithTimeout(cfg.Timeouts.Selection())

	targets := capture.NewResolver(query, interactive, capture.Tools{
		Selector:   cfg.Tools.Selector,
		Compositor: cfg.Tools.Compositor,
	}, logger)
	devices := audio.NewResolver(query, cfg.Tools.Audio, logger)

	supervisor := recorder.NewSupervisor(recorder.Options{
		Binary:       cfg.Tools.Recorder,
		ExtraArgs:    cfg.Recording.ExtraArgs,
		GraceTimeout: cfg.Timeouts.StopGrace(),
		PollInterval: cfg.Timeouts.StopPoll(),
		StartupCheck: cfg.Timeouts.StartupCheck(),
	}, logger)

	store := state.NewStore(stateDir, logger)
	namer := artifact.NewNamer(artifact.ResolveRoot(config.ExpandHome(cfg.Paths.OutputDir)))

	controller := recording.NewController(recording.Deps{
		Targets:  targets,
		Devices:  devices,
		Recorder: supervisor,
		Store:    store,
		Namer:    namer,
	}, recording.Settings{
		AudioPolicy: cfg.Audio.Policy,
		Extension:   cfg.Recording.Extension,
	}, logger)

	shots := screenshot.NewService(query, targets, namer, screenshot.Tools{
		Screenshot: cfg.Tools.Screenshot,
		Clipboard:  cfg.Tools.Clipboard,
		Compositor: cfg.Tools.Compositor,
	}, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		StateDir:    stateDir,
		Store:       store,
		Namer:       namer,
		Targets:     targets,
		Devices:     devices,
		Recorder:    supervisor,
		Controller:  controller,
		Screenshots: shots,
	}
}

// Close flushes and closes the log file.
func (a *App) Close() error {
	return a.Logger.Close()
}

// CreateLogger creates a logger in dir if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
func CreateLogger(dir string, cfg *config.Config, warnings io.Writer) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotation := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}

	logger, err := logging.NewLogger(dir, cfg.Logging.Level, rotation)
	if err != nil {
		// A broken log file must not stop a capture.
		if warnings != nil {
			fmt.Fprintf(warnings, "Warning: failed to create logger: %v\n", err)
		}
		return logging.NopLogger()
	}
	return logger
}

// LogPath returns where CreateLogger writes for dir.
func LogPath(dir string) string {
	return filepath.Join(dir, logging.LogFileName)
}
