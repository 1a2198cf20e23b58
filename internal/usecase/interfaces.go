package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
)

// EntryRepository defines data access for the append-only adjustment ledger.
// A nil tx reads outside of any transaction.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	// LockUser serializes balance-changing transactions of one user until tx ends.
	LockUser(ctx context.Context, tx Transaction, userID string) error
	ExistsByReason(ctx context.Context, tx Transaction, userID, reason string) (bool, error)
	SumByKind(ctx context.Context, tx Transaction, userID string) (credits, deducts decimal.Decimal, err error)
	// SumReversals totals the user's credits tagged as order or withdrawal refunds.
	SumReversals(ctx context.Context, tx Transaction, userID string) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error)
}

// OrderRepository defines data access for sell orders.
type OrderRepository interface {
	Create(ctx context.Context, tx Transaction, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.OrderStatus, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, error)
}

// WithdrawalRepository defines data access for withdrawals.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx Transaction, withdrawal *domain.Withdrawal) error
	GetByID(ctx context.Context, id string) (*domain.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Withdrawal, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.WithdrawalStatus, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error)
}

// DepositRepository defines data access for deposit records.
type DepositRepository interface {
	// Create returns domain.ErrDuplicateDeposit when the source tx id was already recorded.
	Create(ctx context.Context, tx Transaction, deposit *domain.Deposit) error
	ExistsBySourceTxID(ctx context.Context, sourceTxID string) (bool, error)
	// SetForwardTxID records the forwarding transaction on a deposit that is still pending.
	SetForwardTxID(ctx context.Context, tx Transaction, id, forwardTxID string, updatedAt time.Time) error
	MarkForwarded(ctx context.Context, tx Transaction, id, forwardTxID string, updatedAt time.Time) error
	MarkFailed(ctx context.Context, tx Transaction, id, reason string, forwardTxID *string, updatedAt time.Time) error
	SumForwardedByUser(ctx context.Context, tx Transaction, userID string) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Deposit, error)
	// ListStalePending lists pending deposits last updated before the given time, oldest first.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Deposit, error)
}

// WalletRepository lists the deposit wallets under management.
type WalletRepository interface {
	List(ctx context.Context) ([]*domain.Wallet, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient store failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// StoredResponse is a completed mutating request kept for replay.
type StoredResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// IdempotencyStore keeps the outcome of mutating requests keyed by the
// caller-supplied Idempotency-Key.
type IdempotencyStore interface {
	// Reserve claims key for an in-flight request. When the key is already
	// claimed it returns reserved=false and the stored response, which is
	// nil while the first request is still running.
	Reserve(ctx context.Context, key string, ttl time.Duration) (reserved bool, stored *StoredResponse, err error)
	// Complete records the final response for key.
	Complete(ctx context.Context, key string, response StoredResponse, ttl time.Duration) error
	// Release drops an in-flight claim so the request can be retried.
	Release(ctx context.Context, key string) error
}
