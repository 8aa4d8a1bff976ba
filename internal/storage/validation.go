package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clearbrook/orderpipe/internal/model"
)

// ErrNoValidationSnapshot is returned when the validator has not run yet.
var ErrNoValidationSnapshot = errors.New("storage: no validation snapshot")

// SaveValidationSnapshot overwrites the single validation summary row.
// The snapshot is a point-in-time diagnostic, not a history: each validator
// run replaces the previous one.
func (s *Store) SaveValidationSnapshot(ctx context.Context, snap model.ValidationSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_summary
			(id, validated_at, total_orders, duplicate_order_ids, null_customer_ids,
			 orphaned_product_ids, negative_amounts, malformed_emails, invalid_states)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			validated_at         = excluded.validated_at,
			total_orders         = excluded.total_orders,
			duplicate_order_ids  = excluded.duplicate_order_ids,
			null_customer_ids    = excluded.null_customer_ids,
			orphaned_product_ids = excluded.orphaned_product_ids,
			negative_amounts     = excluded.negative_amounts,
			malformed_emails     = excluded.malformed_emails,
			invalid_states       = excluded.invalid_states`,
		snap.ValidatedAt.UTC().Format(time.RFC3339Nano),
		snap.TotalOrders, snap.DuplicateOrderIDs, snap.NullCustomerIDs,
		snap.OrphanedProductIDs, snap.NegativeAmounts, snap.MalformedEmails,
		snap.InvalidStates,
	)
	if err != nil {
		return fmt.Errorf("storage: save validation snapshot: %w", err)
	}
	return nil
}

// ValidationSnapshot returns the current validation summary row.
func (s *Store) ValidationSnapshot(ctx context.Context) (model.ValidationSnapshot, error) {
	var snap model.ValidationSnapshot
	var validatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT validated_at, total_orders, duplicate_order_ids, null_customer_ids,
		       orphaned_product_ids, negative_amounts, malformed_emails, invalid_states
		FROM validation_summary WHERE id = 1`,
	).Scan(&validatedAt, &snap.TotalOrders, &snap.DuplicateOrderIDs,
		&snap.NullCustomerIDs, &snap.OrphanedProductIDs, &snap.NegativeAmounts,
		&snap.MalformedEmails, &snap.InvalidStates)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ValidationSnapshot{}, ErrNoValidationSnapshot
	}
	if err != nil {
		return model.ValidationSnapshot{}, fmt.Errorf("storage: load validation snapshot: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, validatedAt)
	if err != nil {
		return model.ValidationSnapshot{}, fmt.Errorf("storage: parse validated_at: %w", err)
	}
	snap.ValidatedAt = ts
	return snap, nil
}

// RawDefectCounts computes the validator's defect counts with aggregate
// queries against the staging tables. The raw data is never mutated.
//
// Duplicate counting is per offending group: three rows sharing one order_id
// contribute 1, not 3. Email corruption detection uses instr rather than
// LIKE, since '_' is a LIKE wildcard and would match e.g. "xATy".
func (s *Store) RawDefectCounts(ctx context.Context) (model.ValidationSnapshot, error) {
	var snap model.ValidationSnapshot

	type count struct {
		name  string
		query string
		dst   *int64
	}
	counts := []count{
		{"total_orders", `SELECT COUNT(*) FROM raw_orders`, &snap.TotalOrders},
		{"duplicate_order_ids", `
			SELECT COUNT(*) FROM (
				SELECT order_id FROM raw_orders
				GROUP BY order_id HAVING COUNT(*) > 1
			)`, &snap.DuplicateOrderIDs},
		{"null_customer_ids",
			`SELECT COUNT(*) FROM raw_orders WHERE customer_id IS NULL`,
			&snap.NullCustomerIDs},
		{"orphaned_product_ids", `
			SELECT COUNT(*) FROM raw_orders o
			LEFT JOIN product_catalog p ON o.product_id = p.product_id
			WHERE p.product_id IS NULL`, &snap.OrphanedProductIDs},
		{"negative_amounts",
			`SELECT COUNT(*) FROM raw_orders WHERE order_amount < 0`,
			&snap.NegativeAmounts},
		{"malformed_emails",
			`SELECT COUNT(*) FROM raw_orders WHERE instr(customer_email, ?) > 0`,
			&snap.MalformedEmails},
		{"invalid_states", "", &snap.InvalidStates}, // built below, needs the allow-list
	}

	stateQuery, stateArgs := invalidStateQuery()
	counts[len(counts)-1].query = stateQuery

	for _, c := range counts {
		var args []any
		switch c.name {
		case "malformed_emails":
			args = []any{model.EmailCorruptionToken}
		case "invalid_states":
			args = stateArgs
		}
		if err := s.db.QueryRowContext(ctx, c.query, args...).Scan(c.dst); err != nil {
			return model.ValidationSnapshot{}, fmt.Errorf("storage: count %s: %w", c.name, err)
		}
	}
	return snap, nil
}

func invalidStateQuery() (string, []any) {
	args := make([]any, 0, len(model.AllowedStates))
	placeholders := ""
	for state := range model.AllowedStates {
		if placeholders != "" {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, state)
	}
	return `SELECT COUNT(*) FROM raw_orders WHERE shipping_state NOT IN (` + placeholders + `)`, args
}
