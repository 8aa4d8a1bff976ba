package model

import (
	"time"

	"github.com/google/uuid"
)

// ValidationSnapshot is the one-row defect baseline taken against raw data.
// It is overwritten on every validator run, not accumulated: it answers
// "how dirty is the staging table right now", nothing more.
type ValidationSnapshot struct {
	ValidatedAt        time.Time `json:"validated_at"`
	TotalOrders        int64     `json:"total_orders"`
	DuplicateOrderIDs  int64     `json:"duplicate_order_ids"`
	NullCustomerIDs    int64     `json:"null_customer_ids"`
	OrphanedProductIDs int64     `json:"orphaned_product_ids"`
	NegativeAmounts    int64     `json:"negative_amounts"`
	MalformedEmails    int64     `json:"malformed_emails"`
	InvalidStates      int64     `json:"invalid_states"`
}

// Canonical quality dimension names as persisted in the history metrics map.
const (
	MetricCompletenessCustomerID    = "completeness_customer_id"
	MetricCompletenessProductID     = "completeness_product_id"
	MetricCompletenessCustomerEmail = "completeness_customer_email"
	MetricValidityEmail             = "validity_email"
	MetricValidityAmount            = "validity_amount"
	MetricValidityState             = "validity_state"
	MetricUniquenessOrderIDs        = "uniqueness_order_ids"
	MetricConsistencyProduct        = "consistency_product"
)

// QualityMetricSnapshot is one appended row of the quality history.
// Immutable once written; each scorer run adds exactly one.
// Metrics holds full-precision 0-100 scores keyed by dimension name;
// rounding happens only at display time.
type QualityMetricSnapshot struct {
	ID           uuid.UUID          `json:"id"`
	RecordedAt   time.Time          `json:"recorded_at"`
	TotalRecords int64              `json:"total_records"`
	QualityScore float64            `json:"quality_score"`
	Metrics      map[string]float64 `json:"metrics"`
}

// QualityReport is the point-in-time audit view produced by the report
// builder. Its metrics deliberately diverge from the scorer's history
// dimensions (stricter email shape, relaxed state validity) and are rounded
// to two decimals for external consumers.
type QualityReport struct {
	TotalRows    int64              `json:"total_rows"`
	Completeness map[string]float64 `json:"completeness"`
	Validity     map[string]float64 `json:"validity"`
	Uniqueness   map[string]float64 `json:"uniqueness"`
	Consistency  map[string]float64 `json:"consistency"`
	GeneratedAt  time.Time          `json:"generated_at"`
}
