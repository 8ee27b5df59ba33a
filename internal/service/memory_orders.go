package service

import (
	"context"
	"sort"
	"sync"

	"github.com/cortexai/orderlens/internal/models"
)

// MemoryOrderStore keeps orders in process memory
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders []models.Order
}

func NewMemoryOrderStore(orders ...models.Order) *MemoryOrderStore {
	s := &MemoryOrderStore{}
	s.orders = append(s.orders, orders...)
	return s
}

func (s *MemoryOrderStore) TestConnection(ctx context.Context) error { return nil }

// FindOrders returns the orders matching filter, most recent first
func (s *MemoryOrderStore) FindOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Order{}
	for _, o := range s.orders {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ReplaceOrders swaps the stored orders for orders
func (s *MemoryOrderStore) ReplaceOrders(ctx context.Context, orders []models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append([]models.Order(nil), orders...)
	return nil
}

func (s *MemoryOrderStore) Close() error { return nil }
