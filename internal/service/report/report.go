// Package report builds the point-in-time data quality report.
//
// The report recomputes its metrics from the live tables instead of copying
// the scorer's last history row, and its definitions intentionally diverge:
// the email check is stricter (separator and a domain dot), the state check
// is relaxed (the UNKNOWN sentinel counts as validly categorized), and
// completeness covers order_amount. The two views serve different consumers
// and must not be unified.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/service/score"
	"github.com/clearbrook/orderpipe/internal/storage"
)

// ErrNoData is returned when the canonical table is empty; no report file is
// written in that case.
var ErrNoData = errors.New("report: no canonical records to report on")

// Service builds quality reports.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a report builder. Pass nil for the real clock.
func New(store *storage.Store, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// Build recomputes the report metrics from the live tables.
func (s *Service) Build(ctx context.Context) (model.QualityReport, error) {
	rc, err := s.store.ReportCounts(ctx)
	if err != nil {
		return model.QualityReport{}, fmt.Errorf("report: gather counts: %w", err)
	}
	if rc.TotalRows == 0 {
		return model.QualityReport{}, ErrNoData
	}

	pct := func(n int64) float64 {
		return score.Round2(float64(n) / float64(rc.TotalRows) * 100)
	}

	completeness := make(map[string]float64, len(storage.ReportColumns))
	for _, col := range storage.ReportColumns {
		completeness[col] = pct(rc.NonNullByColumn[col])
	}

	return model.QualityReport{
		TotalRows:    rc.TotalRows,
		Completeness: completeness,
		Validity: map[string]float64{
			"valid_email_format": pct(rc.StrictEmails),
			"positive_amounts":   pct(rc.PositiveAmounts),
			"valid_states":       pct(rc.ValidStates),
		},
		Uniqueness: map[string]float64{
			"order_id_uniqueness": pct(rc.DistinctOrderIDs),
		},
		Consistency: map[string]float64{
			"product_catalog_match": pct(rc.CatalogMatches),
		},
		GeneratedAt: s.now(),
	}, nil
}

// Write builds the report and writes it as indented JSON to path, creating
// parent directories as needed.
func (s *Service) Write(ctx context.Context, path string) (model.QualityReport, error) {
	rep, err := s.Build(ctx)
	if err != nil {
		return model.QualityReport{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.QualityReport{}, fmt.Errorf("report: create output dir: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return model.QualityReport{}, fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.QualityReport{}, fmt.Errorf("report: write %s: %w", path, err)
	}

	s.logger.Info("quality report written", "path", path, "total_rows", rep.TotalRows)
	return rep, nil
}
