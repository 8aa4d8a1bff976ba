package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/clearbrook/orderpipe/internal/pipeline"
	"github.com/clearbrook/orderpipe/internal/storage"
	"github.com/clearbrook/orderpipe/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: validate, clean, transform, score, report",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName,
			rootCmd.Version, cfg.OTELInsecure)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()

		runner, err := pipeline.New(store, logger, cfg)
		if err != nil {
			return err
		}
		return runner.Run(ctx)
	}),
}

func init() {
	rootCmd.AddCommand(runCmd)
}
