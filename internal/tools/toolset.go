package tools

import (
	"context"

	"github.com/cortexai/orderlens/internal/models"
)

// Toolset executes calls against the two adapters
type Toolset struct {
	Retriever *ContextRetriever
	Orders    *OrderQuerier
}

var _ Handler = (*Toolset)(nil)

func (t *Toolset) RetrieveContext(ctx context.Context, call RetrieveContextCall) (string, error) {
	return t.Retriever.RetrieveContext(ctx, call.Query)
}

func (t *Toolset) QueryOrders(ctx context.Context, call QueryOrdersCall) ([]models.Order, error) {
	return t.Orders.QueryOrders(ctx, call.Criteria)
}
