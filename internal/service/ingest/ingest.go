// Package ingest loads the raw input files into the staging tables.
//
// Orders arrive as CSV, the product catalog as JSON. Both staging tables are
// replaced wholesale, so a failed ingest leaves the previous staging state
// intact. A missing required column is structural and fatal; a messy value in
// a present column is not ingest's problem — that is what the cleaner is for.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/storage"
)

// orderColumns are the required CSV header columns, in no particular order.
var orderColumns = []string{
	"order_id", "customer_id", "order_date", "product_id", "order_amount",
	"customer_email", "shipping_state", "marketing_source", "order_status",
}

// Service loads raw inputs into the staging tables.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
}

// New creates an ingest service.
func New(store *storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Run ingests the orders CSV and the catalog JSON at the given paths.
func (s *Service) Run(ctx context.Context, ordersPath, catalogPath string) error {
	orders, err := s.loadOrdersCSV(ordersPath)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceRawOrders(ctx, orders); err != nil {
		return fmt.Errorf("ingest: stage orders: %w", err)
	}
	s.logger.Info("orders ingested", "path", ordersPath, "rows", len(orders))

	catalog, err := loadCatalogJSON(catalogPath)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("ingest: stage catalog: %w", err)
	}
	s.logger.Info("catalog ingested", "path", catalogPath, "products", len(catalog))

	return nil
}

func (s *Service) loadOrdersCSV(path string) ([]model.RawOrder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open orders file: %w", err)
	}
	defer f.Close()

	orders, err := ParseOrders(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return orders, nil
}

// ParseOrders reads raw order rows from CSV. The header must contain every
// required column; extra columns are ignored. An empty customer_id cell
// stages as NULL.
func ParseOrders(r io.Reader) ([]model.RawOrder, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range orderColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var orders []model.RawOrder
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		amount, err := strconv.ParseFloat(record[idx["order_amount"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse order_amount: %w", line, err)
		}

		o := model.RawOrder{
			OrderID:         record[idx["order_id"]],
			OrderDate:       record[idx["order_date"]],
			ProductID:       record[idx["product_id"]],
			OrderAmount:     amount,
			CustomerEmail:   record[idx["customer_email"]],
			ShippingState:   record[idx["shipping_state"]],
			MarketingSource: record[idx["marketing_source"]],
			OrderStatus:     record[idx["order_status"]],
		}
		if raw := record[idx["customer_id"]]; raw != "" {
			o.CustomerID = &raw
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func loadCatalogJSON(path string) ([]model.ProductCatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read catalog file: %w", err)
	}

	var entries []model.ProductCatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("ingest: parse catalog %s: %w", path, err)
	}
	for i, e := range entries {
		if e.ProductID == "" {
			return nil, fmt.Errorf("ingest: catalog entry %d has no product_id", i)
		}
	}
	return entries, nil
}
