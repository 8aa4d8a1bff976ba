// Package cli wires the pipeline stages to cobra subcommands. Every command
// loads configuration, opens the shared store, runs its stage, and exits;
// `orderpipe run` executes the whole chain.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/clearbrook/orderpipe/internal/config"
	"github.com/clearbrook/orderpipe/internal/storage"
	"github.com/clearbrook/orderpipe/migrations"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orderpipe",
	Short: "Batch pipeline for cleaning and scoring e-commerce order data",
	Long: `orderpipe ingests messy order records, validates and repairs them with
deterministic rules, derives star-schema aggregates, and tracks a repeatable
data quality score over time.

All stages share one embedded SQLite database; run them individually or with
'orderpipe run'.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

// ExecuteContext runs the root command under the given context, so SIGINT
// cancels in-flight stage work.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion injects the build-time version string.
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}

func initialize(cmd *cobra.Command, args []string) error {
	// Load .env if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// openStore opens the shared database and applies pending migrations.
func openStore(ctx context.Context) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(ctx, migrations.FS); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// withStore is the shared scaffold for stage commands: open, migrate, run fn,
// close.
func withStore(fn func(ctx context.Context, store *storage.Store) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("close store", "error", err)
			}
		}()
		if err := fn(ctx, store); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
		return nil
	}
}
