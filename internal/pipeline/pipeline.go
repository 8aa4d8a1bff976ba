// Package pipeline sequences the batch stages over one shared store handle:
// validate, clean, transform, score, report. Stages run strictly in order and
// the runner fails fast — a fatal stage error stops the pipeline so nothing
// downstream runs against stale state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/clearbrook/orderpipe/internal/config"
	"github.com/clearbrook/orderpipe/internal/service/clean"
	"github.com/clearbrook/orderpipe/internal/service/report"
	"github.com/clearbrook/orderpipe/internal/service/score"
	"github.com/clearbrook/orderpipe/internal/service/transform"
	"github.com/clearbrook/orderpipe/internal/service/validate"
	"github.com/clearbrook/orderpipe/internal/storage"
	"github.com/clearbrook/orderpipe/internal/telemetry"
)

// Runner executes the full pipeline.
type Runner struct {
	store  *storage.Store
	logger *slog.Logger
	cfg    config.Config

	stageDuration metric.Float64Histogram
	stageRows     metric.Int64Counter
}

// New creates a pipeline runner bound to the shared store.
func New(store *storage.Store, logger *slog.Logger, cfg config.Config) (*Runner, error) {
	meter := telemetry.Meter("orderpipe/pipeline")

	stageDuration, err := meter.Float64Histogram("pipeline.stage.duration",
		metric.WithDescription("Wall time per pipeline stage"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: create duration instrument: %w", err)
	}
	stageRows, err := meter.Int64Counter("pipeline.stage.rows",
		metric.WithDescription("Rows produced per pipeline stage"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: create rows instrument: %w", err)
	}

	return &Runner{
		store:         store,
		logger:        logger,
		cfg:           cfg,
		stageDuration: stageDuration,
		stageRows:     stageRows,
	}, nil
}

// Run executes validate, clean, transform, score and report in order.
// An empty canonical set is an explicit no-data outcome, logged and returned
// as success; every other stage error aborts the run.
func (r *Runner) Run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) (int64, error)
	}{
		{"validate", r.runValidate},
		{"clean", r.runClean},
		{"transform", r.runTransform},
		{"score", r.runScore},
		{"report", r.runReport},
	}

	for _, stage := range stages {
		start := time.Now()
		rows, err := stage.fn(ctx)
		elapsed := time.Since(start)

		attrs := metric.WithAttributes(attribute.String("stage", stage.name))
		r.stageDuration.Record(ctx, elapsed.Seconds(), attrs)
		r.stageRows.Add(ctx, rows, attrs)

		if err != nil {
			if errors.Is(err, score.ErrNoData) || errors.Is(err, report.ErrNoData) {
				r.logger.Warn("no canonical data, skipping remaining metric stages",
					"stage", stage.name)
				return nil
			}
			return fmt.Errorf("pipeline: stage %s: %w", stage.name, err)
		}

		r.logger.Info("stage complete", "stage", stage.name,
			"rows", rows, "elapsed", elapsed.Round(time.Millisecond))
	}
	return nil
}

func (r *Runner) runValidate(ctx context.Context) (int64, error) {
	snap, err := validate.New(r.store, r.logger, nil).Run(ctx)
	if err != nil {
		return 0, err
	}
	return snap.TotalOrders, nil
}

func (r *Runner) runClean(ctx context.Context) (int64, error) {
	stats, err := clean.New(r.store, r.logger).Run(ctx)
	if err != nil {
		return 0, err
	}
	return stats.OutputRows, nil
}

func (r *Runner) runTransform(ctx context.Context) (int64, error) {
	counts, err := transform.New(r.store, r.logger).Run(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func (r *Runner) runScore(ctx context.Context) (int64, error) {
	snap, err := score.New(r.store, r.logger, nil, nil).Run(ctx)
	if err != nil {
		return 0, err
	}
	return snap.TotalRecords, nil
}

func (r *Runner) runReport(ctx context.Context) (int64, error) {
	rep, err := report.New(r.store, r.logger, nil).Write(ctx, r.cfg.ReportPath)
	if err != nil {
		return 0, err
	}
	return rep.TotalRows, nil
}
