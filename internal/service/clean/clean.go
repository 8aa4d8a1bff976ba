// Package clean is the deterministic repair engine at the center of the
// pipeline. It turns the staged defect surface into the canonical order set
// by applying a fixed sequence of repair rules, then replaces the canonical
// table wholesale.
//
// Rule order matters: later rules assume earlier postconditions (dedup gives
// a unique key before customer synthesis derives IDs from it; orphan removal
// needs the catalog, not the repaired fields). The transformation is pure —
// no clocks, no randomness — so identical raw input produces identical
// canonical output on every run.
package clean

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/storage"
)

// Stats counts how often each repair rule fired during one cleaning run.
type Stats struct {
	InputRows            int64 `json:"input_rows"`
	OutputRows           int64 `json:"output_rows"`
	DuplicatesRemoved    int64 `json:"duplicates_removed"`
	CustomersSynthesized int64 `json:"customers_synthesized"`
	EmailsRepaired       int64 `json:"emails_repaired"`
	AmountsNormalized    int64 `json:"amounts_normalized"`
	StatesNormalized     int64 `json:"states_normalized"`
	SourcesNormalized    int64 `json:"sources_normalized"`
	OrphansDropped       int64 `json:"orphans_dropped"`
	DatesParsedISO       int64 `json:"dates_parsed_iso"`
	DatesParsedUS        int64 `json:"dates_parsed_us"`
	DatesUnresolved      int64 `json:"dates_unresolved"`
}

// Service runs the cleaning stage.
type Service struct {
	store  *storage.Store
	logger *slog.Logger
}

// New creates a cleaner bound to the shared store.
func New(store *storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Run loads the staging tables, applies the repair rules, and replaces the
// canonical table in one transaction. Re-running against unchanged raw input
// rewrites the table with identical contents.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	raws, err := s.store.RawOrders(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("clean: load raw orders: %w", err)
	}
	catalog, err := s.store.CatalogIDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("clean: load catalog: %w", err)
	}

	cleaned, stats := Apply(raws, catalog)

	if err := s.store.ReplaceCleanedOrders(ctx, cleaned); err != nil {
		return Stats{}, fmt.Errorf("clean: replace canonical table: %w", err)
	}

	s.logger.Info("cleaning complete",
		"input_rows", stats.InputRows,
		"output_rows", stats.OutputRows,
		"duplicates_removed", stats.DuplicatesRemoved,
		"customers_synthesized", stats.CustomersSynthesized,
		"emails_repaired", stats.EmailsRepaired,
		"amounts_normalized", stats.AmountsNormalized,
		"states_normalized", stats.StatesNormalized,
		"sources_normalized", stats.SourcesNormalized,
		"orphans_dropped", stats.OrphansDropped,
		"dates_unresolved", stats.DatesUnresolved,
	)
	return stats, nil
}

// Apply runs the full repair sequence over raw rows already in ingestion
// order. Exported as a pure function so the rule semantics are testable
// without a store.
func Apply(raws []model.RawOrder, catalog map[string]bool) ([]model.CanonicalOrder, Stats) {
	var stats Stats
	stats.InputRows = int64(len(raws))

	// Rule 1: deduplicate by order_id, keeping the first occurrence in
	// ingestion order. The tie-break is explicit, not whatever the store's
	// scan order happens to be.
	seen := make(map[string]bool, len(raws))
	cleaned := make([]model.CanonicalOrder, 0, len(raws))

	for _, raw := range raws {
		if seen[raw.OrderID] {
			stats.DuplicatesRemoved++
			continue
		}
		seen[raw.OrderID] = true

		// Rule 7 (orphan removal) is an exclusion, not a repair: a product_id
		// with no catalog match cannot be deterministically inferred, so the
		// row is dropped before any field repair is worth doing.
		if !catalog[raw.ProductID] {
			stats.OrphansDropped++
			continue
		}

		row := repairRow(raw, &stats)
		cleaned = append(cleaned, row)
	}

	stats.OutputRows = int64(len(cleaned))
	return cleaned, stats
}

// repairRow applies the per-field repair rules (2, 3, 4, 5, 6, 8) to one
// surviving row.
func repairRow(raw model.RawOrder, stats *Stats) model.CanonicalOrder {
	out := model.CanonicalOrder{
		Seq:         raw.IngestSeq,
		OrderID:     raw.OrderID,
		ProductID:   raw.ProductID,
		OrderStatus: raw.OrderStatus,
	}

	// Rule 2: synthesize a deterministic customer_id from the order_id so
	// re-runs produce the same value.
	if raw.CustomerID == nil || *raw.CustomerID == "" {
		out.CustomerID = model.UnknownCustomerPrefix + raw.OrderID
		stats.CustomersSynthesized++
	} else {
		out.CustomerID = *raw.CustomerID
	}

	// Rule 3: undo the separator corruption; valid emails pass through.
	if strings.Contains(raw.CustomerEmail, model.EmailCorruptionToken) {
		out.CustomerEmail = strings.ReplaceAll(raw.CustomerEmail,
			model.EmailCorruptionToken, model.EmailSeparator)
		stats.EmailsRepaired++
	} else {
		out.CustomerEmail = raw.CustomerEmail
	}

	// Rule 4: negative amounts are treated as sign-flip entry errors.
	if raw.OrderAmount < 0 {
		out.OrderAmount = math.Abs(raw.OrderAmount)
		stats.AmountsNormalized++
	} else {
		out.OrderAmount = raw.OrderAmount
	}

	// Rule 5: off-list states become the sentinel, never a dropped row.
	if model.AllowedStates[raw.ShippingState] {
		out.ShippingState = raw.ShippingState
	} else {
		out.ShippingState = model.StateUnknown
		stats.StatesNormalized++
	}

	// Rule 6: canonical casing so case variants of one channel collapse.
	normalized := titleCaseFirst(raw.MarketingSource)
	out.MarketingSource = normalized
	if normalized != raw.MarketingSource {
		stats.SourcesNormalized++
	}

	// Rule 8: try ISO, then month/day/year. Unresolved dates keep the row
	// with a nil date and a flag rather than silently shrinking the dataset.
	out.OrderDate, out.DateUnresolved = parseOrderDate(raw.OrderDate, stats)

	return out
}

func parseOrderDate(raw string, stats *Stats) (*time.Time, bool) {
	if t, err := time.Parse(model.DateLayoutISO, raw); err == nil {
		stats.DatesParsedISO++
		return &t, false
	}
	if t, err := time.Parse(model.DateLayoutUS, raw); err == nil {
		stats.DatesParsedUS++
		return &t, false
	}
	stats.DatesUnresolved++
	return nil, true
}

// titleCaseFirst uppercases the first rune and lowercases the remainder,
// e.g. "google ads" and "GOOGLE ADS" both become "Google ads".
func titleCaseFirst(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
