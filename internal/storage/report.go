package storage

import (
	"context"
	"fmt"

	"github.com/clearbrook/orderpipe/internal/model"
)

// ReportCounts are the raw counts behind the report builder's detail metrics.
// They are recomputed from the live tables on every report run rather than
// copied from the last history row; the report is a point-in-time audit and
// its metric definitions deliberately differ from the scorer's.
type ReportCounts struct {
	TotalRows        int64
	NonNullByColumn  map[string]int64
	StrictEmails     int64 // contains separator AND a domain dot
	PositiveAmounts  int64
	ValidStates      int64 // allow-list plus the UNKNOWN sentinel
	DistinctOrderIDs int64
	CatalogMatches   int64
}

// ReportColumns are the cleaned_orders columns the report checks for
// completeness. order_amount is included here but not in the scorer's
// completeness dimensions.
var ReportColumns = []string{"customer_id", "customer_email", "product_id", "order_amount"}

// ReportCounts gathers every aggregate the report builder needs in one pass
// over the canonical table plus a catalog join.
func (s *Store) ReportCounts(ctx context.Context) (ReportCounts, error) {
	rc := ReportCounts{NonNullByColumn: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cleaned_orders`).Scan(&rc.TotalRows); err != nil {
		return ReportCounts{}, fmt.Errorf("storage: report total rows: %w", err)
	}

	for _, col := range ReportColumns {
		// Column names come from the fixed ReportColumns list, never from input.
		q := fmt.Sprintf(`SELECT COUNT(*) FROM cleaned_orders WHERE %s IS NOT NULL`, col)
		var n int64
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return ReportCounts{}, fmt.Errorf("storage: report completeness %s: %w", col, err)
		}
		rc.NonNullByColumn[col] = n
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cleaned_orders
		WHERE instr(customer_email, ?) > 0 AND instr(customer_email, '.') > 0`,
		model.EmailSeparator,
	).Scan(&rc.StrictEmails); err != nil {
		return ReportCounts{}, fmt.Errorf("storage: report strict emails: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cleaned_orders WHERE order_amount > 0`,
	).Scan(&rc.PositiveAmounts); err != nil {
		return ReportCounts{}, fmt.Errorf("storage: report positive amounts: %w", err)
	}

	stateQuery, stateArgs := validStateQuery()
	if err := s.db.QueryRowContext(ctx, stateQuery, stateArgs...).Scan(&rc.ValidStates); err != nil {
		return ReportCounts{}, fmt.Errorf("storage: report valid states: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT order_id) FROM cleaned_orders`,
	).Scan(&rc.DistinctOrderIDs); err != nil {
		return ReportCounts{}, fmt.Errorf("storage: report distinct order ids: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cleaned_orders o
		JOIN product_catalog p ON o.product_id = p.product_id`,
	).Scan(&rc.CatalogMatches); err != nil {
		return ReportCounts{}, fmt.Errorf("storage: report catalog matches: %w", err)
	}

	return rc, nil
}

// validStateQuery accepts the allow-list plus the UNKNOWN sentinel: the
// report treats a sentinel as successfully categorized, unlike the scorer.
func validStateQuery() (string, []any) {
	args := make([]any, 0, len(model.AllowedStates)+1)
	placeholders := ""
	for state := range model.AllowedStates {
		if placeholders != "" {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, state)
	}
	placeholders += ", ?"
	args = append(args, model.StateUnknown)
	return `SELECT COUNT(*) FROM cleaned_orders WHERE shipping_state IN (` + placeholders + `)`, args
}
