package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clearbrook/orderpipe/internal/seeder"
	"github.com/clearbrook/orderpipe/internal/service/clean"
	"github.com/clearbrook/orderpipe/internal/service/export"
	"github.com/clearbrook/orderpipe/internal/service/ingest"
	"github.com/clearbrook/orderpipe/internal/service/report"
	"github.com/clearbrook/orderpipe/internal/service/score"
	"github.com/clearbrook/orderpipe/internal/service/transform"
	"github.com/clearbrook/orderpipe/internal/service/validate"
	"github.com/clearbrook/orderpipe/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic raw input files",
	Long:  "Write a messy orders CSV and a product catalog JSON into the data dir.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := seeder.New(logger, cfg.Seeder.Count, cfg.Seeder.Seed)
		return s.Write(cfg.DataDir)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load raw input files into the staging tables",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		svc := ingest.New(store, logger)
		return svc.Run(ctx,
			filepath.Join(cfg.DataDir, "orders.csv"),
			filepath.Join(cfg.DataDir, "product_catalog.json"))
	}),
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Count defects in the staged raw data",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		_, err := validate.New(store, logger, nil).Run(ctx)
		return err
	}),
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Repair raw orders into the canonical table",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		_, err := clean.New(store, logger).Run(ctx)
		return err
	}),
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rebuild the star-schema aggregate tables",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		_, err := transform.New(store, logger).Run(ctx)
		return err
	}),
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score data quality and append to the history",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		snap, err := score.New(store, logger, nil, nil).Run(ctx)
		if errors.Is(err, score.ErrNoData) {
			logger.Warn("no canonical records, nothing scored")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Quality score: %.2f (%d records)\n",
			score.Round2(snap.QualityScore), snap.TotalRecords)
		return nil
	}),
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the point-in-time quality report",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		rep, err := report.New(store, logger, nil).Write(ctx, cfg.ReportPath)
		if errors.Is(err, report.ErrNoData) {
			logger.Warn("no canonical records, report skipped")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Report written to %s (%d rows)\n", cfg.ReportPath, rep.TotalRows)
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export pipeline tables to CSV",
	RunE: withStore(func(ctx context.Context, store *storage.Store) error {
		return export.New(store, logger).Run(ctx, cfg.ExportDir)
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd, ingestCmd, validateCmd, cleanCmd,
		transformCmd, scoreCmd, reportCmd, exportCmd)
}
