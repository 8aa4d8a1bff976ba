package score

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/testutil"
)

var scoreCatalog = map[string]bool{"PRD001": true}

func canonical(seq int64, id string, mutate func(*model.CanonicalOrder)) model.CanonicalOrder {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	o := model.CanonicalOrder{
		Seq:             seq,
		OrderID:         id,
		CustomerID:      "CUST1000",
		OrderDate:       &date,
		ProductID:       "PRD001",
		OrderAmount:     25,
		CustomerEmail:   "a@b.com",
		ShippingState:   "TX",
		MarketingSource: "Organic",
		OrderStatus:     "completed",
	}
	if mutate != nil {
		mutate(&o)
	}
	return o
}

func TestComputePerfectDataset(t *testing.T) {
	orders := []model.CanonicalOrder{
		canonical(1, "ORD1", nil),
		canonical(2, "ORD2", nil),
	}

	metrics, aggregate, err := Compute(orders, scoreCatalog)
	require.NoError(t, err)

	require.Len(t, metrics, 8)
	for name, v := range metrics {
		assert.Equal(t, 100.0, v, "dimension %s", name)
	}
	assert.Equal(t, 100.0, aggregate)
}

func TestComputeDimensionMath(t *testing.T) {
	// Four rows: one UNKNOWN state, one zero amount, one sentinel-free but
	// separator-less email. Uniqueness and consistency stay perfect.
	orders := []model.CanonicalOrder{
		canonical(1, "ORD1", nil),
		canonical(2, "ORD2", func(o *model.CanonicalOrder) { o.ShippingState = model.StateUnknown }),
		canonical(3, "ORD3", func(o *model.CanonicalOrder) { o.OrderAmount = 0 }),
		canonical(4, "ORD4", func(o *model.CanonicalOrder) { o.CustomerEmail = "nobody.example.com" }),
	}

	metrics, aggregate, err := Compute(orders, scoreCatalog)
	require.NoError(t, err)

	assert.Equal(t, 75.0, metrics[model.MetricValidityState])
	assert.Equal(t, 75.0, metrics[model.MetricValidityAmount])
	assert.Equal(t, 75.0, metrics[model.MetricValidityEmail])
	assert.Equal(t, 100.0, metrics[model.MetricUniquenessOrderIDs])
	assert.Equal(t, 100.0, metrics[model.MetricConsistencyProduct])

	// Unweighted mean of 100,100,100,75,75,75,100,100.
	assert.InDelta(t, 90.625, aggregate, 1e-9)
}

func TestComputeCatalogDrift(t *testing.T) {
	// A product removed from the catalog between cleaning and scoring shows
	// up as a consistency drop, not an error.
	orders := []model.CanonicalOrder{
		canonical(1, "ORD1", nil),
		canonical(2, "ORD2", func(o *model.CanonicalOrder) { o.ProductID = "PRDGONE" }),
	}

	metrics, _, err := Compute(orders, scoreCatalog)
	require.NoError(t, err)
	assert.Equal(t, 50.0, metrics[model.MetricConsistencyProduct])
}

func TestComputeEmptyDataset(t *testing.T) {
	_, _, err := Compute(nil, scoreCatalog)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRunAppendsExactlyOneSnapshot(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceCatalog(ctx, []model.ProductCatalogEntry{
		{ProductID: "PRD001", Name: "Wireless Mouse", Category: "Electronics", Price: 29.99},
	}))
	require.NoError(t, store.ReplaceCleanedOrders(ctx, []model.CanonicalOrder{
		canonical(1, "ORD1", nil),
	}))

	clock := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	svc := New(store, testutil.Logger(),
		func() time.Time { return clock },
		func() uuid.UUID { return id })

	snap, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, int64(1), snap.TotalRecords)

	n, err := store.QualityHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunHistoryIsMonotonicAndImmutable(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceCatalog(ctx, []model.ProductCatalogEntry{
		{ProductID: "PRD001", Name: "Wireless Mouse", Category: "Electronics", Price: 29.99},
	}))
	require.NoError(t, store.ReplaceCleanedOrders(ctx, []model.CanonicalOrder{
		canonical(1, "ORD1", nil),
		canonical(2, "ORD2", func(o *model.CanonicalOrder) { o.ShippingState = model.StateUnknown }),
	}))

	clock := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := New(store, testutil.Logger(), func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}, nil)

	_, err := svc.Run(ctx)
	require.NoError(t, err)
	first, err := store.QualityHistory(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.Run(ctx)
	require.NoError(t, err)
	second, err := store.QualityHistory(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2, "history grows by exactly one per run")

	assert.Equal(t, first[0], second[0], "existing rows are never altered")
	assert.True(t, second[1].RecordedAt.After(second[0].RecordedAt))
}

func TestRunEmptyCanonicalAppendsNothing(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	_, err := New(store, testutil.Logger(), nil, nil).Run(ctx)
	assert.ErrorIs(t, err, ErrNoData)

	n, err := store.QualityHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "no-data runs must not write NaN rows")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 90.63, Round2(90.625))
	assert.Equal(t, 100.0, Round2(100))
	assert.Equal(t, 33.33, Round2(100.0/3))
}
