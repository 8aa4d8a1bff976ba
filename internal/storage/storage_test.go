package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/storage"
	"github.com/clearbrook/orderpipe/internal/testutil"
	"github.com/clearbrook/orderpipe/migrations"
)

func strPtr(s string) *string { return &s }

func rawOrder(id string) model.RawOrder {
	return model.RawOrder{
		OrderID:         id,
		CustomerID:      strPtr("CUST1000"),
		OrderDate:       "2024-06-01",
		ProductID:       "PRD001",
		OrderAmount:     25,
		CustomerEmail:   "a@b.com",
		ShippingState:   "TX",
		MarketingSource: "Organic",
		OrderStatus:     "completed",
	}
}

func TestReplaceRawOrdersResetsSequence(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceRawOrders(ctx,
		[]model.RawOrder{rawOrder("ORD1"), rawOrder("ORD2")}))
	require.NoError(t, store.ReplaceRawOrders(ctx,
		[]model.RawOrder{rawOrder("ORD3"), rawOrder("ORD4")}))

	got, err := store.RawOrders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].IngestSeq, "sequence restarts after replace")
	assert.Equal(t, int64(2), got[1].IngestSeq)
	assert.Equal(t, "ORD3", got[0].OrderID)
}

func TestRawOrdersPreserveNullCustomerID(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	withNull := rawOrder("ORD1")
	withNull.CustomerID = nil
	require.NoError(t, store.ReplaceRawOrders(ctx,
		[]model.RawOrder{withNull, rawOrder("ORD2")}))

	got, err := store.RawOrders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].CustomerID)
	require.NotNil(t, got[1].CustomerID)
	assert.Equal(t, "CUST1000", *got[1].CustomerID)
}

func TestCleanedOrdersRoundTrip(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	orders := []model.CanonicalOrder{
		{
			OrderID: "ORD1", Seq: 1, CustomerID: "CUST1000", OrderDate: &date,
			ProductID: "PRD001", OrderAmount: 25, CustomerEmail: "a@b.com",
			ShippingState: "TX", MarketingSource: "Organic", OrderStatus: "completed",
		},
		{
			OrderID: "ORD2", Seq: 2, CustomerID: "CUST_UNKNOWN_ORD2", OrderDate: nil,
			DateUnresolved: true, ProductID: "PRD002", OrderAmount: 9.5,
			CustomerEmail: "c@d.com", ShippingState: model.StateUnknown,
			MarketingSource: "Email", OrderStatus: "pending",
		},
	}
	require.NoError(t, store.ReplaceCleanedOrders(ctx, orders))

	got, err := store.CleanedOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders, got)

	n, err := store.CountCleanedOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCatalogIDs(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	entries := []model.ProductCatalogEntry{
		{ProductID: "PRD001", Name: "Wireless Mouse", Category: "Electronics", Price: 29.99},
		{ProductID: "PRD002", Name: "Coffee Mug", Category: "Home", Price: 12.99},
	}
	require.NoError(t, store.ReplaceCatalog(ctx, entries))

	got, err := store.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	ids, err := store.CatalogIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"PRD001": true, "PRD002": true}, ids)
}

func TestValidationSnapshotUpsert(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	_, err := store.ValidationSnapshot(ctx)
	assert.ErrorIs(t, err, storage.ErrNoValidationSnapshot)

	first := model.ValidationSnapshot{
		ValidatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TotalOrders: 10, DuplicateOrderIDs: 2,
	}
	require.NoError(t, store.SaveValidationSnapshot(ctx, first))

	second := first
	second.ValidatedAt = first.ValidatedAt.Add(time.Hour)
	second.DuplicateOrderIDs = 0
	require.NoError(t, store.SaveValidationSnapshot(ctx, second))

	got, err := store.ValidationSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestQualityHistoryAppendOnlyOrdered(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	snaps := []model.QualityMetricSnapshot{
		{
			ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			RecordedAt: base, TotalRecords: 5, QualityScore: 91.25,
			Metrics: map[string]float64{model.MetricValidityEmail: 80},
		},
		{
			ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			RecordedAt: base.Add(time.Minute), TotalRecords: 6, QualityScore: 95,
			Metrics: map[string]float64{model.MetricValidityEmail: 100},
		},
	}
	// Insert out of order; reads must come back chronological.
	require.NoError(t, store.AppendQualitySnapshot(ctx, snaps[1]))
	require.NoError(t, store.AppendQualitySnapshot(ctx, snaps[0]))

	got, err := store.QualityHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, snaps, got)

	n, err := store.QualityHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReadTableRejectsUnknownNames(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	_, _, err := store.ReadTable(ctx, "sqlite_master")
	assert.Error(t, err)

	_, err = store.TableRowCount(ctx, "orders; DROP TABLE raw_orders")
	assert.Error(t, err)
}

func TestExecScriptAndReadTable(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceCleanedOrders(ctx, []model.CanonicalOrder{
		{
			OrderID: "ORD1", Seq: 1, CustomerID: "CUST1000", ProductID: "PRD001",
			OrderAmount: 25, CustomerEmail: "a@b.com", ShippingState: "TX",
			MarketingSource: "Organic", OrderStatus: "completed",
		},
	}))
	require.NoError(t, store.ExecScript(ctx, `
		DROP TABLE IF EXISTS dim_customers;
		CREATE TABLE dim_customers AS
		SELECT customer_id, COUNT(*) AS total_orders
		FROM cleaned_orders GROUP BY customer_id;
	`))

	n, err := store.TableRowCount(ctx, "dim_customers")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cols, rows, err := store.ReadTable(ctx, "dim_customers")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "total_orders"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"CUST1000", "1"}, rows[0])
}

func TestMigrationsAreIdempotent(t *testing.T) {
	store := testutil.NewStore(t)

	// testutil already ran migrations once; a second pass must be a no-op.
	require.NoError(t, store.RunMigrations(context.Background(), migrations.FS))
}
