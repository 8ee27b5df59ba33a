package service

import (
	"fmt"
	"strings"

	"github.com/cortexai/orderlens/internal/models"
)

const orderColumns = "order_id, customer_name, product, amount, status, created_at"

type predicateKind int

const (
	predEqualFold predicateKind = iota
	predContainsFold
	predEqual
	predAtLeast
	predAtMost
)

type orderPredicate struct {
	kind   predicateKind
	column string
	value  interface{}
}

func orderPredicates(f models.OrderFilter) []orderPredicate {
	var preds []orderPredicate
	if f.CustomerName != nil {
		preds = append(preds, orderPredicate{predEqualFold, "customer_name", *f.CustomerName})
	}
	if f.Product != nil {
		preds = append(preds, orderPredicate{predContainsFold, "product", *f.Product})
	}
	if f.Status != nil {
		preds = append(preds, orderPredicate{predEqual, "status", *f.Status})
	}
	if f.CreatedFrom != nil {
		preds = append(preds, orderPredicate{predAtLeast, "created_at", *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		preds = append(preds, orderPredicate{predAtMost, "created_at", *f.CreatedTo})
	}
	return preds
}

// renderOrderWhere renders the filter as a WHERE clause (empty when the
// filter is empty). placeholder maps a 1-based argument position to the
// dialect's bind syntax. LOWER and STRPOS exist in both Postgres and BigQuery.
func renderOrderWhere(f models.OrderFilter, placeholder func(n int) string) (string, []interface{}) {
	preds := orderPredicates(f)
	if len(preds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(preds))
	args := make([]interface{}, 0, len(preds))
	for i, p := range preds {
		ph := placeholder(i + 1)
		switch p.kind {
		case predEqualFold:
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) = LOWER(%s)", p.column, ph))
		case predContainsFold:
			clauses = append(clauses, fmt.Sprintf("STRPOS(LOWER(%s), LOWER(%s)) > 0", p.column, ph))
		case predEqual:
			clauses = append(clauses, fmt.Sprintf("%s = %s", p.column, ph))
		case predAtLeast:
			clauses = append(clauses, fmt.Sprintf("%s >= %s", p.column, ph))
		case predAtMost:
			clauses = append(clauses, fmt.Sprintf("%s <= %s", p.column, ph))
		}
		args = append(args, p.value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
