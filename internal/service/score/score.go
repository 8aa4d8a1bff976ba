// Package score computes the post-clean quality metrics and appends one
// immutable snapshot per run to the quality history.
//
// The eight dimensions are scored 0-100 and combined by unweighted arithmetic
// mean. Full precision is persisted; two-decimal rounding is display-only.
// These are the trend metrics — the report builder computes a deliberately
// different, more detailed point-in-time view.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/storage"
)

// ErrNoData is returned when the canonical table is empty. No history row is
// appended in that case: there is no meaningful score, and NaN must never
// reach the history.
var ErrNoData = errors.New("score: no canonical records to score")

// Service runs the scoring stage.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// New creates a scorer. now and newID are replaceable for tests; pass nil for
// the real clock and random UUIDs.
func New(store *storage.Store, logger *slog.Logger, now func() time.Time, newID func() uuid.UUID) *Service {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.New
	}
	return &Service{store: store, logger: logger, now: now, newID: newID}
}

// Run computes all dimensions against the canonical table and the live
// catalog, appends one snapshot, and returns it. Returns ErrNoData on an
// empty canonical table.
func (s *Service) Run(ctx context.Context) (model.QualityMetricSnapshot, error) {
	orders, err := s.store.CleanedOrders(ctx)
	if err != nil {
		return model.QualityMetricSnapshot{}, fmt.Errorf("score: load canonical orders: %w", err)
	}
	catalog, err := s.store.CatalogIDs(ctx)
	if err != nil {
		return model.QualityMetricSnapshot{}, fmt.Errorf("score: load catalog: %w", err)
	}

	metrics, aggregate, err := Compute(orders, catalog)
	if err != nil {
		return model.QualityMetricSnapshot{}, err
	}

	snap := model.QualityMetricSnapshot{
		ID:           s.newID(),
		RecordedAt:   s.now(),
		TotalRecords: int64(len(orders)),
		QualityScore: aggregate,
		Metrics:      metrics,
	}
	if err := s.store.AppendQualitySnapshot(ctx, snap); err != nil {
		return model.QualityMetricSnapshot{}, fmt.Errorf("score: append snapshot: %w", err)
	}

	s.logger.Info("quality score recorded",
		"total_records", snap.TotalRecords,
		"quality_score", Round2(snap.QualityScore),
	)
	return snap, nil
}

// Compute scores the canonical rows against the catalog. Exported as a pure
// function so the metric math is testable without a store. Returns ErrNoData
// for an empty input instead of dividing by zero.
func Compute(orders []model.CanonicalOrder, catalog map[string]bool) (map[string]float64, float64, error) {
	total := len(orders)
	if total == 0 {
		return nil, 0, ErrNoData
	}

	var customerIDs, productIDs, emails int
	var validEmails, positiveAmts, knownStates, catalogHits int
	distinctIDs := make(map[string]bool, total)
	for _, o := range orders {
		if o.CustomerID != "" {
			customerIDs++
		}
		if o.ProductID != "" {
			productIDs++
		}
		if o.CustomerEmail != "" {
			emails++
		}
		if strings.Contains(o.CustomerEmail, model.EmailSeparator) {
			validEmails++
		}
		if o.OrderAmount > 0 {
			positiveAmts++
		}
		if o.ShippingState != model.StateUnknown {
			knownStates++
		}
		if catalog[o.ProductID] {
			catalogHits++
		}
		distinctIDs[o.OrderID] = true
	}

	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }

	metrics := map[string]float64{
		model.MetricCompletenessCustomerID:    pct(customerIDs),
		model.MetricCompletenessProductID:     pct(productIDs),
		model.MetricCompletenessCustomerEmail: pct(emails),
		model.MetricValidityEmail:             pct(validEmails),
		model.MetricValidityAmount:            pct(positiveAmts),
		model.MetricValidityState:             pct(knownStates),
		model.MetricUniquenessOrderIDs:        pct(len(distinctIDs)),
		model.MetricConsistencyProduct:        pct(catalogHits),
	}

	var sum float64
	for _, v := range metrics {
		sum += v
	}
	return metrics, sum / float64(len(metrics)), nil
}

// Round2 rounds a score to two decimals for display. Stored values keep full
// precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
