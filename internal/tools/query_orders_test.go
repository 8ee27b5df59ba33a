package tools_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cortexai/orderlens/internal/models"
	"github.com/cortexai/orderlens/internal/service"
	"github.com/cortexai/orderlens/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleOrders() []models.Order {
	return []models.Order{
		{OrderID: "A1001", CustomerName: "Alice", Product: "Pro Plan", Amount: 99, Status: "paid", CreatedAt: testNow},
		{OrderID: "A1002", CustomerName: "Bob", Product: "Basic Plan", Amount: 19, Status: "refunded", CreatedAt: testNow.AddDate(0, 0, -3)},
		{OrderID: "A1003", CustomerName: "alice", Product: "Add-on Storage", Amount: 5, Status: "paid", CreatedAt: testNow.AddDate(0, 0, -8)},
		{OrderID: "A1004", CustomerName: "Carol", Product: "Pro Plan", Amount: 99, Status: "pending", CreatedAt: testNow.AddDate(0, 0, -32)},
	}
}

func newQuerier() *tools.OrderQuerier {
	return tools.NewOrderQuerier(service.NewMemoryOrderStore(sampleOrders()...), func() time.Time { return testNow })
}

func ids(orders []models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.OrderID
	}
	return out
}

func TestQueryOrders(t *testing.T) {
	tests := []struct {
		name     string
		criteria map[string]interface{}
		want     []string
	}{
		{"no criteria returns all, newest first", nil, []string{"A1001", "A1002", "A1003", "A1004"}},
		{"customer name is case-insensitive exact", map[string]interface{}{"customerName": "ALICE"}, []string{"A1001", "A1003"}},
		{"customer name is not a substring match", map[string]interface{}{"customerName": "Ali"}, []string{}},
		{"product is case-insensitive substring", map[string]interface{}{"product": "plan"}, []string{"A1001", "A1002", "A1004"}},
		{"product is literal, not a pattern", map[string]interface{}{"product": "Pro.*"}, []string{}},
		{"status is exact and case-sensitive", map[string]interface{}{"status": "Paid"}, []string{}},
		{"status match", map[string]interface{}{"status": "paid"}, []string{"A1001", "A1003"}},
		{"last week", map[string]interface{}{"dateRange": "last week"}, []string{"A1001", "A1002"}},
		{"last month", map[string]interface{}{"dateRange": "last month"}, []string{"A1001", "A1002", "A1003"}},
		{"unknown preset spans from the epoch", map[string]interface{}{"dateRange": "yesterday"}, []string{"A1001", "A1002", "A1003", "A1004"}},
		{"from overrides preset lower bound", map[string]interface{}{"dateRange": "last week", "from": "2024-05-01"}, []string{"A1001", "A1002", "A1003", "A1004"}},
		{"to bounds the upper end", map[string]interface{}{"to": "2024-06-10T00:00:00Z"}, []string{"A1003", "A1004"}},
		{"criteria are AND-combined", map[string]interface{}{"customerName": "alice", "status": "paid", "dateRange": "last week"}, []string{"A1001"}},
		{"empty strings are ignored", map[string]interface{}{"customerName": "", "status": ""}, []string{"A1001", "A1002", "A1003", "A1004"}},
		{"non-string values are ignored", map[string]interface{}{"status": 3}, []string{"A1001", "A1002", "A1003", "A1004"}},
	}
	q := newQuerier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.QueryOrders(context.Background(), tt.criteria)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestQueryOrders_InvalidInstant(t *testing.T) {
	_, err := newQuerier().QueryOrders(context.Background(), map[string]interface{}{"from": "last tuesday"})
	assert.Error(t, err)
}

func TestQueryOrders_SortedDescending(t *testing.T) {
	got, err := newQuerier().QueryOrders(context.Background(), nil)
	require.NoError(t, err)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt), "orders out of order at %d", i)
	}
}

type unsortedStore struct {
	orders []models.Order
	err    error
}

func (s unsortedStore) FindOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	return s.orders, s.err
}

func TestQueryOrders_SortsStoreOutput(t *testing.T) {
	orders := sampleOrders()
	store := unsortedStore{orders: []models.Order{orders[3], orders[0], orders[2], orders[1]}}
	got, err := tools.NewOrderQuerier(store, nil).QueryOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1001", "A1002", "A1003", "A1004"}, ids(got))
}

func TestQueryOrders_StoreError(t *testing.T) {
	_, err := tools.NewOrderQuerier(unsortedStore{err: errors.New("connection refused")}, nil).
		QueryOrders(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBuildOrderFilter_Presets(t *testing.T) {
	f, err := tools.BuildOrderFilter(map[string]interface{}{"dateRange": "last month"}, testNow)
	require.NoError(t, err)
	require.NotNil(t, f.CreatedFrom)
	require.NotNil(t, f.CreatedTo)
	assert.Equal(t, time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), *f.CreatedFrom)
	assert.Equal(t, testNow, *f.CreatedTo)

	f, err = tools.BuildOrderFilter(map[string]interface{}{"dateRange": "someday"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), *f.CreatedFrom)

	f, err = tools.BuildOrderFilter(map[string]interface{}{"to": "2024-01-02"}, testNow)
	require.NoError(t, err)
	assert.Nil(t, f.CreatedFrom)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *f.CreatedTo)
}
