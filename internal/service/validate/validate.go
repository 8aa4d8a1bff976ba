// Package validate computes the raw-data defect baseline.
//
// The validator reads the staging tables, counts defects without repairing
// anything, and overwrites the single validation snapshot. It is a diagnostic
// taken before cleaning; the post-clean picture belongs to the scorer.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/storage"
)

// Service runs raw-data validation.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a validator. now is replaceable for tests; pass nil for
// time.Now.
func New(store *storage.Store, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// Run counts defects in the staging tables and overwrites the validation
// snapshot. The raw tables are never mutated. A missing input table surfaces
// as an error from the count queries and aborts the stage.
func (s *Service) Run(ctx context.Context) (model.ValidationSnapshot, error) {
	snap, err := s.store.RawDefectCounts(ctx)
	if err != nil {
		return model.ValidationSnapshot{}, fmt.Errorf("validate: defect counts: %w", err)
	}
	snap.ValidatedAt = s.now()

	if err := s.store.SaveValidationSnapshot(ctx, snap); err != nil {
		return model.ValidationSnapshot{}, fmt.Errorf("validate: save snapshot: %w", err)
	}

	s.logger.Info("validation complete",
		"total_orders", snap.TotalOrders,
		"duplicate_order_ids", snap.DuplicateOrderIDs,
		"null_customer_ids", snap.NullCustomerIDs,
		"orphaned_product_ids", snap.OrphanedProductIDs,
		"negative_amounts", snap.NegativeAmounts,
		"malformed_emails", snap.MalformedEmails,
		"invalid_states", snap.InvalidStates,
	)
	return snap, nil
}
