package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

// Withdrawal is a request to send funds on-chain to an external address.
type Withdrawal struct {
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
	ID                 string
	UserID             string
	DestinationAddress string
	Network            string
	Status             WithdrawalStatus
	Amount             decimal.Decimal
	FeeAmount          decimal.Decimal
}

// Total is the amount held for the withdrawal.
func (w *Withdrawal) Total() decimal.Decimal {
	return w.Amount.Add(w.FeeAmount)
}
