package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFailed    OrderStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusFailed
}

// Order is a sell order. Funds are held from creation; the admin
// resolution either keeps the hold as the final deduction or fails the order.
type Order struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	ID              string
	UserID          string
	BankDestination string
	Plan            string
	Status          OrderStatus
	Amount          decimal.Decimal
	Rate            decimal.Decimal
	InrEquivalent   decimal.Decimal
}

// OrderFailurePolicy decides what happens to the creation hold when an order fails.
type OrderFailurePolicy string

const (
	// OrderFailureRetain leaves the hold in place.
	OrderFailureRetain OrderFailurePolicy = "retain"
	// OrderFailureRefund appends a credit reversing the hold.
	OrderFailureRefund OrderFailurePolicy = "refund"
)

// IsValid reports whether p is a known policy.
func (p OrderFailurePolicy) IsValid() bool {
	return p == OrderFailureRetain || p == OrderFailureRefund
}
