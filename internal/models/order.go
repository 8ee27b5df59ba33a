package models

import (
	"strings"
	"time"
)

// Order is a single record of the structured order store
type Order struct {
	OrderID      string    `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Product      string    `json:"product"`
	Amount       float64   `json:"amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OrderFilter is the backend-neutral predicate set used by order stores.
// Nil fields do not constrain the result; all set fields are AND-combined.
type OrderFilter struct {
	// CustomerName matches case-insensitively against the whole name.
	CustomerName *string
	// Product matches case-insensitively as a literal substring.
	Product *string
	// Status matches exactly.
	Status *string
	// CreatedFrom and CreatedTo are inclusive bounds on CreatedAt.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Matches reports whether o satisfies every predicate of f. In-memory stores
// use it directly; database stores translate the same fields into queries.
func (f OrderFilter) Matches(o Order) bool {
	if f.CustomerName != nil && !strings.EqualFold(o.CustomerName, *f.CustomerName) {
		return false
	}
	if f.Product != nil && !strings.Contains(strings.ToLower(o.Product), strings.ToLower(*f.Product)) {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && o.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}
