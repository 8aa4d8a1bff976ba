package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clearbrook/orderpipe/internal/model"
)

// ReplaceRawOrders replaces the staging table wholesale with the given rows.
// Ingest sequence numbers are reassigned in slice order, which defines the
// canonical "first occurrence" order used by the cleaner's dedup tie-break.
func (s *Store) ReplaceRawOrders(ctx context.Context, orders []model.RawOrder) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM raw_orders`); err != nil {
			return fmt.Errorf("storage: clear raw_orders: %w", err)
		}
		// Reset the autoincrement counter so re-ingest yields identical seqs.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sqlite_sequence WHERE name = 'raw_orders'`); err != nil {
			return fmt.Errorf("storage: reset raw_orders sequence: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO raw_orders
				(order_id, customer_id, order_date, product_id, order_amount,
				 customer_email, shipping_state, marketing_source, order_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare raw insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range orders {
			if _, err := stmt.ExecContext(ctx,
				o.OrderID, o.CustomerID, o.OrderDate, o.ProductID, o.OrderAmount,
				o.CustomerEmail, o.ShippingState, o.MarketingSource, o.OrderStatus,
			); err != nil {
				return fmt.Errorf("storage: insert raw order %s: %w", o.OrderID, err)
			}
		}
		return nil
	})
}

// RawOrders returns every staged row in ingestion order.
func (s *Store) RawOrders(ctx context.Context) ([]model.RawOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ingest_seq, order_id, customer_id, order_date, product_id,
		       order_amount, customer_email, shipping_state, marketing_source, order_status
		FROM raw_orders
		ORDER BY ingest_seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: query raw_orders: %w", err)
	}
	defer rows.Close()

	var orders []model.RawOrder
	for rows.Next() {
		var o model.RawOrder
		var customerID sql.NullString
		if err := rows.Scan(&o.IngestSeq, &o.OrderID, &customerID, &o.OrderDate,
			&o.ProductID, &o.OrderAmount, &o.CustomerEmail, &o.ShippingState,
			&o.MarketingSource, &o.OrderStatus,
		); err != nil {
			return nil, fmt.Errorf("storage: scan raw order: %w", err)
		}
		if customerID.Valid {
			o.CustomerID = &customerID.String
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountRawOrders returns the staging table size.
func (s *Store) CountRawOrders(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_orders`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count raw_orders: %w", err)
	}
	return n, nil
}

// ReplaceCleanedOrders replaces the canonical table wholesale. The delete and
// all inserts share one transaction, so downstream readers see either the old
// canonical set or the new one, never a mixture.
func (s *Store) ReplaceCleanedOrders(ctx context.Context, orders []model.CanonicalOrder) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cleaned_orders`); err != nil {
			return fmt.Errorf("storage: clear cleaned_orders: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cleaned_orders
				(order_id, seq, customer_id, order_date, date_unresolved, product_id,
				 order_amount, customer_email, shipping_state, marketing_source, order_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare cleaned insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range orders {
			var date any
			if o.OrderDate != nil {
				date = o.OrderDate.Format(model.DateLayoutISO)
			}
			if _, err := stmt.ExecContext(ctx,
				o.OrderID, o.Seq, o.CustomerID, date, o.DateUnresolved, o.ProductID,
				o.OrderAmount, o.CustomerEmail, o.ShippingState, o.MarketingSource, o.OrderStatus,
			); err != nil {
				return fmt.Errorf("storage: insert cleaned order %s: %w", o.OrderID, err)
			}
		}
		return nil
	})
}

// CleanedOrders returns the canonical set in first-occurrence order.
func (s *Store) CleanedOrders(ctx context.Context) ([]model.CanonicalOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, seq, customer_id, order_date, date_unresolved, product_id,
		       order_amount, customer_email, shipping_state, marketing_source, order_status
		FROM cleaned_orders
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: query cleaned_orders: %w", err)
	}
	defer rows.Close()

	var orders []model.CanonicalOrder
	for rows.Next() {
		var o model.CanonicalOrder
		var date sql.NullString
		if err := rows.Scan(&o.OrderID, &o.Seq, &o.CustomerID, &date, &o.DateUnresolved,
			&o.ProductID, &o.OrderAmount, &o.CustomerEmail, &o.ShippingState,
			&o.MarketingSource, &o.OrderStatus,
		); err != nil {
			return nil, fmt.Errorf("storage: scan cleaned order: %w", err)
		}
		if date.Valid {
			t, err := time.Parse(model.DateLayoutISO, date.String)
			if err != nil {
				return nil, fmt.Errorf("storage: cleaned order %s has malformed date %q: %w",
					o.OrderID, date.String, err)
			}
			o.OrderDate = &t
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountCleanedOrders returns the canonical table size.
func (s *Store) CountCleanedOrders(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cleaned_orders`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count cleaned_orders: %w", err)
	}
	return n, nil
}
