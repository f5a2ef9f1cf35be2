package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/su6nl/release-publisher/internal/service/publisher"
)

func newManifestCommand() *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect the remote download index",
	}

	manifestCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the remote download index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			// Reading never writes, so progress output would only clutter stderr.
			cfg.Progress = false

			return publisher.ShowManifest(ctx, &publisher.Options{
				Config: cfg,
				Stream: os.Stderr,
				Output: cmd.OutOrStdout(),
			})
		},
	})

	return manifestCmd
}
