package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountingMode selects how available balance is derived.
type AccountingMode string

const (
	// AccountingManual derives balance from credit and deduct entries only.
	AccountingManual AccountingMode = "manual"
	// AccountingForwarding derives balance from forwarded deposits minus deduct entries.
	AccountingForwarding AccountingMode = "forwarding"
)

// ParseAccountingMode validates a configured mode.
func ParseAccountingMode(s string) (AccountingMode, error) {
	switch m := AccountingMode(s); m {
	case AccountingManual, AccountingForwarding:
		return m, nil
	default:
		return "", fmt.Errorf("unknown accounting mode %q", s)
	}
}

// Balance is the derived spendable balance of a user with its components.
type Balance struct {
	UserID            string
	Mode              AccountingMode
	Credits           decimal.Decimal
	Deducts           decimal.Decimal
	ForwardedDeposits decimal.Decimal
	// Reversals are the refund credits counted against deducts in forwarding mode.
	Reversals decimal.Decimal
	Available decimal.Decimal
}
