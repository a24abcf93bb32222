// Package cmd provides the CLI commands for rfcmirror.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"rfcmirror/internal/cache"
	"rfcmirror/internal/config"
	"rfcmirror/internal/logging"
	"rfcmirror/pkg/version"
)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	cacheDir   string
	configPath string
	debug      bool
}

var rootOpts rootOptions

var loggingCleanup func()

// NewRootCmd creates the root command for the rfcmirror CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfcmirror",
		Short: "Mirror and search the RFC document index",
		Long: `rfcmirror maintains a local mirror of the RFC index and the RFC
text files, and provides full-text search over the mirrored corpus.

The cache directory holds the index file, one text file per RFC and a
persistent search index. Run 'rfcmirror update' to bring all three up to
date, then 'rfcmirror search' to query them.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("rfcmirror version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootOpts.cacheDir, "cache-dir", "", "Cache directory (default: user cache dir)")
	cmd.PersistentFlags().StringVar(&rootOpts.configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&rootOpts.debug, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig builds the effective configuration from the config file and
// persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return nil, err
	}
	if rootOpts.cacheDir != "" {
		cfg.CacheDir = rootOpts.cacheDir
	}
	return cfg, nil
}

// openRegistry loads the configuration and opens the registry on it.
func openRegistry() (*cache.Registry, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	reg, err := cache.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return reg, cfg, nil
}

// startLogging configures file logging under the cache root.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig(cfg.CacheDir)
	logCfg.Level = cfg.LogLevel
	if rootOpts.debug {
		logCfg = logging.DebugConfig(cfg.CacheDir)
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// stopLogging closes the log file.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
