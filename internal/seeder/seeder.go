// Package seeder generates the messy synthetic input files the pipeline is
// exercised against: an orders CSV with injected defects and a clean product
// catalog JSON.
//
// Defect rates mirror what the upstream systems actually produce: missing
// customer IDs, corrupted email separators, mixed date formats, sign-flipped
// amounts, bogus states, duplicated order IDs, orphaned product references
// and inconsistent marketing-source casing. Generation is deterministic under
// a fixed seed.
package seeder

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/clearbrook/orderpipe/internal/model"
)

// Defect injection rates.
const (
	rateNullCustomer    = 0.05
	rateCorruptEmail    = 0.03
	rateUSDate          = 0.04
	rateNegativeAmount  = 0.02
	rateInvalidState    = 0.01
	rateDuplicateOrder  = 0.03
	rateOrphanProduct   = 0.02
	rateLowercaseSource = 0.15
)

var (
	states   = []string{"CA", "NY", "TX", "FL", "IL", "PA", "OH", "GA", "NC", "MI"}
	sources  = []string{"Google Ads", "Facebook", "Organic", "Email", "Referral", "Direct"}
	statuses = []string{"completed", "pending", "cancelled", "refunded"}
)

// Catalog is the fixed reference catalog the seeder emits.
var Catalog = []model.ProductCatalogEntry{
	{ProductID: "PRD001", Name: "Wireless Mouse", Category: "Electronics", Price: 29.99},
	{ProductID: "PRD002", Name: "Laptop Stand", Category: "Electronics", Price: 49.99},
	{ProductID: "PRD003", Name: "Desk Lamp", Category: "Home", Price: 39.99},
	{ProductID: "PRD004", Name: "Office Chair", Category: "Furniture", Price: 299.99},
	{ProductID: "PRD005", Name: "Notebook Set", Category: "Stationery", Price: 12.99},
}

// Seeder generates synthetic raw inputs.
type Seeder struct {
	logger *slog.Logger
	count  int
	rng    *rand.Rand
	faker  *gofakeit.Faker
}

// New creates a seeder emitting count orders, deterministic under seed.
func New(logger *slog.Logger, count int, seed int64) *Seeder {
	return &Seeder{
		logger: logger,
		count:  count,
		rng:    rand.New(rand.NewSource(seed)),
		faker:  gofakeit.New(seed),
	}
}

// Orders generates the raw order rows, defects included.
func (s *Seeder) Orders() []model.RawOrder {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	spanDays := int(time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC).Sub(start).Hours() / 24)

	orders := make([]model.RawOrder, 0, s.count)
	for i := 0; i < s.count; i++ {
		product := Catalog[s.rng.Intn(len(Catalog))]
		orderDate := start.AddDate(0, 0, s.rng.Intn(spanDays+1))

		var customerID *string
		if s.rng.Float64() >= rateNullCustomer {
			id := fmt.Sprintf("CUST%04d", 1000+s.rng.Intn(9000))
			customerID = &id
		}

		email := s.faker.Email()
		if s.rng.Float64() < rateCorruptEmail {
			email = corruptEmail(email)
		}

		dateStr := orderDate.Format(model.DateLayoutISO)
		if s.rng.Float64() < rateUSDate {
			dateStr = orderDate.Format(model.DateLayoutUS)
		}

		amount := product.Price * float64(1+s.rng.Intn(4))
		if s.rng.Float64() < rateNegativeAmount {
			amount = -product.Price
		}

		state := states[s.rng.Intn(len(states))]
		if s.rng.Float64() < rateInvalidState {
			state = "ZZ"
		}

		orderID := fmt.Sprintf("ORD%07d", i+1)
		if i > 0 && s.rng.Float64() < rateDuplicateOrder {
			orderID = orders[len(orders)-1].OrderID
		}

		productID := product.ProductID
		if s.rng.Float64() < rateOrphanProduct {
			productID = fmt.Sprintf("PRD%03d", 100+s.rng.Intn(900))
		}

		source := sources[s.rng.Intn(len(sources))]
		if s.rng.Float64() < rateLowercaseSource {
			source = strings.ToLower(source)
		}

		orders = append(orders, model.RawOrder{
			OrderID:         orderID,
			CustomerID:      customerID,
			OrderDate:       dateStr,
			ProductID:       productID,
			OrderAmount:     amount,
			CustomerEmail:   email,
			ShippingState:   state,
			MarketingSource: source,
			OrderStatus:     statuses[s.rng.Intn(len(statuses))],
		})
	}
	return orders
}

// Write generates the inputs and writes orders.csv plus product_catalog.json
// under dir.
func (s *Seeder) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("seeder: create dir %s: %w", dir, err)
	}

	orders := s.Orders()

	ordersPath := filepath.Join(dir, "orders.csv")
	if err := writeOrdersCSV(ordersPath, orders); err != nil {
		return err
	}

	catalogPath := filepath.Join(dir, "product_catalog.json")
	data, err := json.MarshalIndent(Catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("seeder: marshal catalog: %w", err)
	}
	if err := os.WriteFile(catalogPath, data, 0o644); err != nil {
		return fmt.Errorf("seeder: write %s: %w", catalogPath, err)
	}

	s.logger.Info("synthetic data generated",
		"orders", len(orders), "orders_path", ordersPath, "catalog_path", catalogPath)
	return nil
}

func writeOrdersCSV(path string, orders []model.RawOrder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("seeder: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	header := []string{"order_id", "customer_id", "order_date", "product_id",
		"order_amount", "customer_email", "shipping_state", "marketing_source", "order_status"}
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("seeder: write header: %w", err)
	}

	for _, o := range orders {
		customerID := ""
		if o.CustomerID != nil {
			customerID = *o.CustomerID
		}
		record := []string{
			o.OrderID,
			customerID,
			o.OrderDate,
			o.ProductID,
			strconv.FormatFloat(o.OrderAmount, 'f', 2, 64),
			o.CustomerEmail,
			o.ShippingState,
			o.MarketingSource,
			o.OrderStatus,
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("seeder: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("seeder: flush %s: %w", path, err)
	}
	return f.Close()
}

func corruptEmail(email string) string {
	return strings.ReplaceAll(email, model.EmailSeparator, model.EmailCorruptionToken)
}
