// Package export dumps pipeline tables to CSV files for downstream BI tools.
// Tables export concurrently; each file is written whole or not at all.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/clearbrook/orderpipe/internal/storage"
)

// Service exports tables to CSV.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
}

// New creates an exporter.
func New(store *storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Run writes every exportable table to <dir>/<table>.csv.
func (s *Service) Run(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range storage.ExportableTables {
		g.Go(func() error {
			return s.exportTable(gctx, table, filepath.Join(dir, table+".csv"))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("export complete", "dir", dir, "tables", len(storage.ExportableTables))
	return nil
}

func (s *Service) exportTable(ctx context.Context, table, path string) error {
	cols, rows, err := s.store.ReadTable(ctx, table)
	if err != nil {
		return fmt.Errorf("export: read %s: %w", table, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		f.Close()
		return fmt.Errorf("export: write header of %s: %w", table, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("export: write row of %s: %w", table, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("export: flush %s: %w", table, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}

	s.logger.Info("table exported", "table", table, "rows", len(rows), "path", path)
	return nil
}
