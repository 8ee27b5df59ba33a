package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cortexai/orderlens/internal/models"
	"github.com/rs/zerolog"
)

// OrderStore is the read side of the structured order store
type OrderStore interface {
	FindOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
}

// OrderQuerier is the structured query adapter behind the query_orders tool
type OrderQuerier struct {
	store OrderStore
	now   func() time.Time
}

// NewOrderQuerier creates an adapter over store. now defaults to time.Now.
func NewOrderQuerier(store OrderStore, now func() time.Time) *OrderQuerier {
	if now == nil {
		now = time.Now
	}
	return &OrderQuerier{store: store, now: now}
}

// QueryOrders returns the orders matching criteria, most recent first.
// An empty result is an empty slice, never an error.
func (q *OrderQuerier) QueryOrders(ctx context.Context, criteria map[string]interface{}) ([]models.Order, error) {
	filter, err := BuildOrderFilter(criteria, q.now())
	if err != nil {
		return nil, err
	}

	orders, err := q.store.FindOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	zerolog.Ctx(ctx).Debug().
		Int("count", len(orders)).
		Interface("criteria", criteria).
		Msg("order query executed")
	return orders, nil
}

// BuildOrderFilter converts loosely-typed criteria into an OrderFilter.
// Only non-empty string values are recognised.
//
// A dateRange preset sets both bounds to [start, now]; an unrecognised preset
// keeps the lower bound at the Unix epoch. Explicit from/to then override the
// lower and upper bound independently.
func BuildOrderFilter(criteria map[string]interface{}, now time.Time) (models.OrderFilter, error) {
	var f models.OrderFilter

	if v, ok := stringArg(criteria, "customerName"); ok {
		f.CustomerName = &v
	}
	if v, ok := stringArg(criteria, "product"); ok {
		f.Product = &v
	}
	if v, ok := stringArg(criteria, "status"); ok {
		f.Status = &v
	}

	if preset, ok := stringArg(criteria, "dateRange"); ok {
		from := time.Unix(0, 0).UTC()
		switch preset {
		case DateRangeLastWeek:
			from = now.AddDate(0, 0, -7)
		case DateRangeLastMonth:
			from = now.AddDate(0, -1, 0)
		}
		to := now
		f.CreatedFrom = &from
		f.CreatedTo = &to
	}

	if v, ok := stringArg(criteria, "from"); ok {
		t, err := parseInstant(v)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.CreatedFrom = &t
	}
	if v, ok := stringArg(criteria, "to"); ok {
		t, err := parseInstant(v)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		f.CreatedTo = &t
	}
	return f, nil
}

func stringArg(criteria map[string]interface{}, key string) (string, bool) {
	v, ok := criteria[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseInstant(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO instant %q", s)
}
