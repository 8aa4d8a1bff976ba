// Package model defines the core domain types for orderpipe.
//
// RawOrder mirrors the staging table and carries no invariants; CanonicalOrder
// is the cleaned shape whose invariants the cleaner enforces. Types use strong
// typing (time.Time, pointer-nullable fields) and avoid interface{} wherever
// possible.
package model

import "time"

// Domain constants shared by the validator, cleaner, scorer and report builder.
const (
	// StateUnknown is substituted for shipping states outside the allow-list.
	StateUnknown = "UNKNOWN"

	// EmailCorruptionToken is the known ingest artifact that replaces the
	// email separator in corrupted rows ("a_AT_b.com").
	EmailCorruptionToken = "_AT_"

	// EmailSeparator is the canonical separator restored by the cleaner.
	EmailSeparator = "@"

	// UnknownCustomerPrefix prefixes customer IDs synthesized for rows staged
	// with a NULL customer_id. The suffix is the order_id, so synthesis is
	// deterministic across runs.
	UnknownCustomerPrefix = "CUST_UNKNOWN_"

	// DateLayoutISO and DateLayoutUS are the two accepted raw date formats,
	// tried in that order. The US layout uses non-padded verbs so it accepts
	// both "03/01/2024" and "3/1/2024".
	DateLayoutISO = "2006-01-02"
	DateLayoutUS  = "1/2/2006"
)

// AllowedStates is the fixed shipping-state allow-list. Anything else is
// normalized to StateUnknown rather than dropped.
var AllowedStates = map[string]bool{
	"CA": true, "NY": true, "TX": true, "FL": true, "IL": true,
	"PA": true, "OH": true, "GA": true, "NC": true, "MI": true,
}

// RawOrder is an order row exactly as staged. This is the defect surface:
// no field is guaranteed valid, unique or present.
type RawOrder struct {
	IngestSeq       int64   `json:"ingest_seq"`
	OrderID         string  `json:"order_id"`
	CustomerID      *string `json:"customer_id,omitempty"`
	OrderDate       string  `json:"order_date"`
	ProductID       string  `json:"product_id"`
	OrderAmount     float64 `json:"order_amount"`
	CustomerEmail   string  `json:"customer_email"`
	ShippingState   string  `json:"shipping_state"`
	MarketingSource string  `json:"marketing_source"`
	OrderStatus     string  `json:"order_status"`
}

// CanonicalOrder is a cleaned order row. Invariants (enforced by the cleaner,
// asserted by tests):
//   - OrderID is unique within the canonical set (first occurrence wins).
//   - CustomerID is never empty.
//   - CustomerEmail contains the canonical separator, never the corruption token.
//   - OrderAmount >= 0.
//   - ShippingState is in AllowedStates or is StateUnknown.
//   - ProductID exists in the product catalog.
//   - OrderDate is a valid calendar date, or nil with DateUnresolved set.
type CanonicalOrder struct {
	// Seq is the ingest sequence of the surviving raw row. It preserves
	// original ingestion order so re-runs emit rows in a stable order.
	Seq             int64      `json:"seq"`
	OrderID         string     `json:"order_id"`
	CustomerID      string     `json:"customer_id"`
	OrderDate       *time.Time `json:"order_date,omitempty"`
	DateUnresolved  bool       `json:"date_unresolved"`
	ProductID       string     `json:"product_id"`
	OrderAmount     float64    `json:"order_amount"`
	CustomerEmail   string     `json:"customer_email"`
	ShippingState   string     `json:"shipping_state"`
	MarketingSource string     `json:"marketing_source"`
	OrderStatus     string     `json:"order_status"`
}
