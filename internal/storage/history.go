package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/orderpipe/internal/model"
)

// AppendQualitySnapshot appends one immutable row to the quality history.
// There is deliberately no update or delete counterpart: history rows are
// create-once. Full-precision metric values are persisted as JSON.
func (s *Store) AppendQualitySnapshot(ctx context.Context, snap model.QualityMetricSnapshot) error {
	metricsJSON, err := json.Marshal(snap.Metrics)
	if err != nil {
		return fmt.Errorf("storage: marshal metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quality_history (id, recorded_at, total_records, quality_score, metrics_json)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID.String(),
		snap.RecordedAt.UTC().Format(time.RFC3339Nano),
		snap.TotalRecords,
		snap.QualityScore,
		string(metricsJSON),
	)
	if err != nil {
		return fmt.Errorf("storage: append quality snapshot: %w", err)
	}
	return nil
}

// QualityHistory returns all snapshots, oldest first.
func (s *Store) QualityHistory(ctx context.Context) ([]model.QualityMetricSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, total_records, quality_score, metrics_json
		FROM quality_history
		ORDER BY recorded_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: query quality_history: %w", err)
	}
	defer rows.Close()

	var history []model.QualityMetricSnapshot
	for rows.Next() {
		snap, err := scanQualitySnapshot(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, snap)
	}
	return history, rows.Err()
}

// QualityHistoryCount returns the number of history rows.
func (s *Store) QualityHistoryCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quality_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count quality_history: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQualitySnapshot(r rowScanner) (model.QualityMetricSnapshot, error) {
	var snap model.QualityMetricSnapshot
	var id, recordedAt, metricsJSON string
	if err := r.Scan(&id, &recordedAt, &snap.TotalRecords, &snap.QualityScore, &metricsJSON); err != nil {
		return model.QualityMetricSnapshot{}, fmt.Errorf("storage: scan quality snapshot: %w", err)
	}

	parsed, err := parseSnapshotID(id)
	if err != nil {
		return model.QualityMetricSnapshot{}, err
	}
	snap.ID = parsed

	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return model.QualityMetricSnapshot{}, fmt.Errorf("storage: parse recorded_at: %w", err)
	}
	snap.RecordedAt = ts

	if err := json.Unmarshal([]byte(metricsJSON), &snap.Metrics); err != nil {
		return model.QualityMetricSnapshot{}, fmt.Errorf("storage: unmarshal metrics: %w", err)
	}
	return snap, nil
}

func parseSnapshotID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("storage: parse snapshot id %q: %w", raw, err)
	}
	return id, nil
}
