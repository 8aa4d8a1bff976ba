package clean

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/orderpipe/internal/model"
	"github.com/clearbrook/orderpipe/internal/testutil"
)

func strPtr(s string) *string { return &s }

func rawOrder(seq int64, id string, mutate func(*model.RawOrder)) model.RawOrder {
	o := model.RawOrder{
		IngestSeq:       seq,
		OrderID:         id,
		CustomerID:      strPtr("CUST1234"),
		OrderDate:       "2024-03-01",
		ProductID:       "PRD001",
		OrderAmount:     29.99,
		CustomerEmail:   "jane@example.com",
		ShippingState:   "CA",
		MarketingSource: "Email",
		OrderStatus:     "completed",
	}
	if mutate != nil {
		mutate(&o)
	}
	return o
}

var testCatalog = map[string]bool{"PRD001": true, "PRD002": true}

func TestApplyOrphanExcludedEntirely(t *testing.T) {
	// Every other field is broken too, but none of the repairs matter:
	// the orphaned product reference removes the row outright.
	raws := []model.RawOrder{
		rawOrder(1, "ORD1", func(o *model.RawOrder) {
			o.CustomerID = nil
			o.OrderAmount = -10
			o.ShippingState = "ZZ"
			o.CustomerEmail = "a_AT_b.com"
			o.ProductID = "PRDX"
		}),
	}

	cleaned, stats := Apply(raws, testCatalog)

	assert.Empty(t, cleaned)
	assert.Equal(t, int64(1), stats.OrphansDropped)
	assert.Equal(t, int64(0), stats.OutputRows)
}

func TestApplyRepairsEveryDefect(t *testing.T) {
	raws := []model.RawOrder{
		rawOrder(1, "ORD2", func(o *model.RawOrder) {
			o.CustomerID = nil
			o.OrderAmount = -5
			o.ShippingState = "ZZ"
			o.CustomerEmail = "a_AT_b.com"
		}),
	}

	cleaned, stats := Apply(raws, testCatalog)
	require.Len(t, cleaned, 1)

	got := cleaned[0]
	assert.Equal(t, "CUST_UNKNOWN_ORD2", got.CustomerID)
	assert.Equal(t, 5.0, got.OrderAmount)
	assert.Equal(t, model.StateUnknown, got.ShippingState)
	assert.Equal(t, "a@b.com", got.CustomerEmail)

	assert.Equal(t, int64(1), stats.CustomersSynthesized)
	assert.Equal(t, int64(1), stats.AmountsNormalized)
	assert.Equal(t, int64(1), stats.StatesNormalized)
	assert.Equal(t, int64(1), stats.EmailsRepaired)
}

func TestApplyDedupeKeepsFirstOccurrence(t *testing.T) {
	raws := []model.RawOrder{
		rawOrder(1, "ORD3", func(o *model.RawOrder) { o.OrderAmount = 100 }),
		rawOrder(2, "ORD3", func(o *model.RawOrder) { o.OrderAmount = 999 }),
	}

	cleaned, stats := Apply(raws, testCatalog)
	require.Len(t, cleaned, 1)

	assert.Equal(t, "ORD3", cleaned[0].OrderID)
	assert.Equal(t, 100.0, cleaned[0].OrderAmount, "first raw row's fields must win")
	assert.Equal(t, int64(1), stats.DuplicatesRemoved)
}

func TestApplyDateParsing(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantISO        string
		wantUnresolved bool
	}{
		{"iso format", "2024-03-01", "2024-03-01", false},
		{"us format", "03/01/2024", "2024-03-01", false},
		{"us format no padding", "3/1/2024", "2024-03-01", false},
		{"garbage kept with nil date", "soon", "", true},
		{"empty kept with nil date", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws := []model.RawOrder{
				rawOrder(1, "ORD1", func(o *model.RawOrder) { o.OrderDate = tt.raw }),
			}
			cleaned, _ := Apply(raws, testCatalog)
			require.Len(t, cleaned, 1, "unresolved dates must not drop the row")

			got := cleaned[0]
			assert.Equal(t, tt.wantUnresolved, got.DateUnresolved)
			if tt.wantUnresolved {
				assert.Nil(t, got.OrderDate)
			} else {
				require.NotNil(t, got.OrderDate)
				assert.Equal(t, tt.wantISO, got.OrderDate.Format(model.DateLayoutISO))
			}
		})
	}
}

func TestApplyMarketingSourceCasing(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"google ads", "Google ads"},
		{"GOOGLE ADS", "Google ads"},
		{"Email", "Email"},
		{"", ""},
	}
	for _, tt := range tests {
		raws := []model.RawOrder{
			rawOrder(1, "ORD1", func(o *model.RawOrder) { o.MarketingSource = tt.in }),
		}
		cleaned, _ := Apply(raws, testCatalog)
		require.Len(t, cleaned, 1)
		assert.Equal(t, tt.want, cleaned[0].MarketingSource, "input %q", tt.in)
	}
}

func TestApplyInvariants(t *testing.T) {
	// A mixed batch covering every defect type at once.
	raws := []model.RawOrder{
		rawOrder(1, "ORD1", nil),
		rawOrder(2, "ORD1", func(o *model.RawOrder) { o.OrderAmount = -1 }), // dup
		rawOrder(3, "ORD2", func(o *model.RawOrder) { o.CustomerID = nil }),
		rawOrder(4, "ORD3", func(o *model.RawOrder) { o.OrderAmount = -42.5 }),
		rawOrder(5, "ORD4", func(o *model.RawOrder) { o.ShippingState = "XX" }),
		rawOrder(6, "ORD5", func(o *model.RawOrder) { o.ProductID = "PRD999" }), // orphan
		rawOrder(7, "ORD6", func(o *model.RawOrder) { o.CustomerEmail = "x_AT_y.org" }),
		rawOrder(8, "ORD7", func(o *model.RawOrder) { o.OrderDate = "not a date" }),
	}

	cleaned, _ := Apply(raws, testCatalog)

	ids := make(map[string]bool)
	for _, o := range cleaned {
		assert.False(t, ids[o.OrderID], "order_id %s appears twice", o.OrderID)
		ids[o.OrderID] = true

		assert.NotEmpty(t, o.CustomerID)
		assert.GreaterOrEqual(t, o.OrderAmount, 0.0)
		assert.True(t, model.AllowedStates[o.ShippingState] || o.ShippingState == model.StateUnknown)
		assert.True(t, testCatalog[o.ProductID])
		assert.NotContains(t, o.CustomerEmail, model.EmailCorruptionToken)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	raws := []model.RawOrder{
		rawOrder(1, "ORD1", func(o *model.RawOrder) { o.CustomerID = nil }),
		rawOrder(2, "ORD2", func(o *model.RawOrder) { o.OrderAmount = -3 }),
		rawOrder(3, "ORD2", nil),
	}

	first, firstStats := Apply(raws, testCatalog)
	second, secondStats := Apply(raws, testCatalog)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}

func TestRunIsIdempotent(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceCatalog(ctx, []model.ProductCatalogEntry{
		{ProductID: "PRD001", Name: "Wireless Mouse", Category: "Electronics", Price: 29.99},
	}))
	require.NoError(t, store.ReplaceRawOrders(ctx, []model.RawOrder{
		rawOrder(0, "ORD1", func(o *model.RawOrder) { o.CustomerID = nil }),
		rawOrder(0, "ORD2", func(o *model.RawOrder) { o.OrderDate = "13/45/nope" }),
		rawOrder(0, "ORD2", nil),
	}))

	svc := New(store, testutil.Logger())

	_, err := svc.Run(ctx)
	require.NoError(t, err)
	first, err := store.CleanedOrders(ctx)
	require.NoError(t, err)

	_, err = svc.Run(ctx)
	require.NoError(t, err)
	second, err := store.CleanedOrders(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-running the cleaner must reproduce the table exactly")
	assert.Len(t, first, 2)
}

func TestRunEmptyStaging(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	// Empty staging tables are not an error: the canonical table just ends
	// up empty.
	stats, err := New(store, testutil.Logger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.OutputRows)
}
