package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recera/patchview/cmd/patchview/internal/config"
	"github.com/recera/patchview/internal/logging"
	"github.com/recera/patchview/internal/source"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// app is the state shared by every command after PersistentPreRunE
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	source string
	log    *zap.Logger
}

func main() {
	a := &app{}

	var rootCmd = &cobra.Command{
		Use:   "patchview",
		Short: "patchview - explore per-patch signals on a 128x128 grid",
		Long: `patchview maps a pointer dragged over a grid image to a cell of the
128x128 sample grid and charts the signal window stored for that cell's
patch offset. It runs as a live WebSocket server or as a terminal explorer.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (defaults to patchview.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	// Add commands
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newExploreCommand(a))
	rootCmd.AddCommand(newProbeCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// init loads the configuration and builds the logger
func (a *app) init() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
		a.source = a.configPath
	} else {
		a.cfg, a.source, err = config.Load(".")
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log, err = logging.New(a.cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logging.WireDebugHooks(a.log)

	if a.source != "" {
		a.log.Debug("Loaded config", zap.String("path", a.source))
	}
	return nil
}

// loader builds the data loader for the configured files. Relative paths are
// resolved against the config file's directory.
func (a *app) loader() *source.Loader {
	return source.NewLoader(source.Config{
		BufferPath:   a.resolve(a.cfg.Data.Buffer),
		MetadataPath: a.resolve(a.cfg.Data.Metadata),
		Logger:       a.log,
	})
}

func (a *app) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || a.source == "" {
		return path
	}
	return filepath.Join(filepath.Dir(a.source), path)
}
