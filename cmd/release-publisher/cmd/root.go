package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/su6nl/release-publisher/internal/config"
	"github.com/su6nl/release-publisher/internal/logger"
	"github.com/su6nl/release-publisher/internal/service/publisher"
	"github.com/su6nl/release-publisher/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command running the whole release.
	rootCmd = &cobra.Command{
		Use:   "release-publisher",
		Short: "Build, upload and index a release binary",
		Long: `Publishes one compiled binary:

1. Reads name and version from the [package] table of Cargo.toml.
2. Runs "cargo build --release --target <triple>" for every target, stopping at the first failure.
3. Uploads each binary to <endpoint>:<bucket>/<arch>/ with rclone.
4. Merges the package metadata and download URLs into the JSON download index in the bucket.

Settings come from release-publisher.yaml, RELEASE_PUBLISHER_* environment variables and flags,
in increasing precedence. A failing build exits with the build tool's status.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			options := &publisher.Options{
				Config: cfg,
				Stream: os.Stderr,
				Output: cmd.OutOrStdout(),
			}

			return publisher.Run(ctx, options)
		},
	}
)

// Execute runs the release-publisher CLI and exits with the matching status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		os.Exit(publisher.ExitCode(err))
	}
}

// resolveConfig builds the settings for cmd and configures logging from them.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	if err = setupLogging(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	if cfg.LogFile != "" {
		logger.SetLogger(logger.NewWithFile(nil, cfg.LogFile))
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newConfigCommand(), newManifestCommand())
}
