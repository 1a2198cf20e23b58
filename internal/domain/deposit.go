package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusForwarded DepositStatus = "forwarded"
	DepositStatusFailed    DepositStatus = "failed"
)

// Deposit records an observed inbound on-chain transfer and the result of
// sweeping it into the master wallet. SourceTxID is unique.
type Deposit struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ForwardTxID   *string
	ID            string
	UserID        string
	SourceAddress string
	SourceTxID    string
	FailureReason string
	Status        DepositStatus
	Amount        decimal.Decimal
}

// Wallet is a per-user deposit address under management.
type Wallet struct {
	CreatedAt time.Time
	ID        string
	UserID    string
	Address   string
}

// InboundTransfer is a token transfer reported by the chain indexer.
type InboundTransfer struct {
	Timestamp     time.Time
	SourceTxID    string
	From          string
	To            string
	TokenContract string
	Amount        decimal.Decimal
}

// Receipt is the chain's record of an executed transfer.
type Receipt struct {
	TxID        string
	BlockNumber int64
	Success     bool
}
