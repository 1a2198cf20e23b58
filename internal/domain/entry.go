package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the direction of a ledger adjustment.
type EntryKind string

const (
	EntryKindCredit EntryKind = "credit"
	EntryKindDeduct EntryKind = "deduct"
)

// IsValid reports whether k is a known kind.
func (k EntryKind) IsValid() bool {
	return k == EntryKindCredit || k == EntryKindDeduct
}

// Entry is an immutable ledger adjustment. Entries are never updated or
// deleted; corrections are made by appending an offsetting entry.
type Entry struct {
	CreatedAt          time.Time
	ID                 string
	UserID             string
	Kind               EntryKind
	Reason             string
	LinkedOrderID      *string
	LinkedWithdrawalID *string
	CreatedBy          string
	Amount             decimal.Decimal
}

// Signed returns the amount with the sign implied by the kind.
func (e *Entry) Signed() decimal.Decimal {
	if e.Kind == EntryKindDeduct {
		return e.Amount.Neg()
	}
	return e.Amount
}
