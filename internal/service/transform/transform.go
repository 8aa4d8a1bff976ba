// Package transform builds the downstream star-schema aggregates from the
// canonical orders: fct_orders, dim_customers, product_performance,
// marketing_attribution and daily_metrics. The SQL is embedded and runs in a
// single transaction.
package transform

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/clearbrook/orderpipe/internal/storage"
)

//go:embed transform.sql
var script string

// Service runs the transform stage.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
}

// New creates a transform service.
func New(store *storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Run rebuilds the star-schema tables and returns their row counts.
func (s *Service) Run(ctx context.Context) (map[string]int64, error) {
	if err := s.store.ExecScript(ctx, script); err != nil {
		return nil, fmt.Errorf("transform: build star schema: %w", err)
	}

	counts := make(map[string]int64, len(storage.TransformedTables))
	for _, table := range storage.TransformedTables {
		n, err := s.store.TableRowCount(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("transform: count %s: %w", table, err)
		}
		counts[table] = n
		s.logger.Info("transformed table built", "table", table, "rows", n)
	}
	return counts, nil
}
