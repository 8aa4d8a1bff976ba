package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// TransformedTables are the star-schema tables built by the transform stage.
var TransformedTables = []string{
	"fct_orders",
	"dim_customers",
	"product_performance",
	"marketing_attribution",
	"daily_metrics",
}

// ExportableTables is the closed set of tables the exporter may dump.
// Table names are interpolated into SQL, so everything must come from this
// list, never from user input.
var ExportableTables = append([]string{
	"raw_orders",
	"cleaned_orders",
	"quality_history",
}, TransformedTables...)

// ExecScript runs a multi-statement SQL script inside one transaction.
// The transform stage uses this for its drop-and-recreate star-schema build,
// so a failed transform leaves the previous tables intact.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("storage: exec script: %w", err)
		}
		return nil
	})
}

// TableRowCount counts rows in one of the known tables.
func (s *Store) TableRowCount(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("storage: unknown table %q", table)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count %s: %w", table, err)
	}
	return n, nil
}

// ReadTable dumps a known table as column names plus stringified rows.
// SQL NULL becomes the empty string, matching the CSV export convention.
func (s *Store) ReadTable(ctx context.Context, table string) ([]string, [][]string, error) {
	if !knownTable(table) {
		return nil, nil, fmt.Errorf("storage: unknown table %q", table)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM `+table)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("storage: columns of %s: %w", table, err)
	}

	var out [][]string
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("storage: scan %s row: %w", table, err)
		}

		record := make([]string, len(cols))
		for i, v := range raw {
			record[i] = stringifyValue(v)
		}
		out = append(out, record)
	}
	return cols, out, rows.Err()
}

func knownTable(table string) bool {
	for _, t := range ExportableTables {
		if t == table {
			return true
		}
	}
	return false
}

func stringifyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
