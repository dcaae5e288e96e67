// Package order defines the order aggregate produced at checkout and worked
// through the fulfillment dashboard.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order. The data model does not
// enforce a transition table: any status may move to any other.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a persisted customer order. TotalAmount is the sum of item totals
// computed at checkout; it is not recomputed when product prices change.
type Order struct {
	ID            string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	TotalAmount   decimal.Decimal
	Status        Status
	Notes         string
	ApprovedBy    string // set once by the first approver, never overwritten
	UserID        string // identity of the session that created the order
	Source        string // "web" or "mobile"
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []Item
}

// Item is one order line. UnitPrice is frozen at checkout so later product
// price edits do not alter past orders. ProductID may be empty if the product
// was deleted after the sale.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// CustomerInfo carries the checkout form fields. UserID is not part of the
// form; it is the session identity of whoever placed the order.
type CustomerInfo struct {
	UserID string
	Name   string
	Phone  string
	Email  string
	Notes  string
	Source string
}
