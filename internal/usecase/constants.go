package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultNetwork is used when a withdrawal does not name one.
	DefaultNetwork = "TRC20"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// SweepLockKey names the distributed lock held for one sweep tick.
	SweepLockKey = "deposit-sweep"
)
