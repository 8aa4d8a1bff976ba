package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clearbrook/orderpipe/internal/model"
)

// ReplaceCatalog replaces the product catalog wholesale. The catalog is
// read-only to every stage after ingest.
func (s *Store) ReplaceCatalog(ctx context.Context, entries []model.ProductCatalogEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_catalog`); err != nil {
			return fmt.Errorf("storage: clear product_catalog: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO product_catalog (product_id, name, category, price)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare catalog insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.ProductID, e.Name, e.Category, e.Price); err != nil {
				return fmt.Errorf("storage: insert catalog entry %s: %w", e.ProductID, err)
			}
		}
		return nil
	})
}

// Catalog returns every catalog entry ordered by product_id.
func (s *Store) Catalog(ctx context.Context) ([]model.ProductCatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, category, price
		FROM product_catalog
		ORDER BY product_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: query product_catalog: %w", err)
	}
	defer rows.Close()

	var entries []model.ProductCatalogEntry
	for rows.Next() {
		var e model.ProductCatalogEntry
		if err := rows.Scan(&e.ProductID, &e.Name, &e.Category, &e.Price); err != nil {
			return nil, fmt.Errorf("storage: scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CatalogIDs returns the set of known product IDs, the cleaner's and scorer's
// referential-integrity reference.
func (s *Store) CatalogIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT product_id FROM product_catalog`)
	if err != nil {
		return nil, fmt.Errorf("storage: query catalog ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan catalog id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
