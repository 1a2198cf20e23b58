package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/metrics"
)

// txRunner executes a unit of work inside one transaction, retrying the
// whole unit when the retrier classifies the failure as transient.
type txRunner struct {
	txManager TransactionManager
	retrier   Retrier
}

func (r txRunner) run(ctx context.Context, op string, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := r.txManager.Begin(txCtx)
		if err != nil {
			return &domain.StoreError{Op: op + ": begin", Err: err}
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return &domain.StoreError{Op: op + ": commit", Err: err}
		}

		return nil
	}

	if r.retrier == nil {
		return attempt()
	}

	return r.retrier.Retry(ctx, attempt)
}

func storeErr(op string, err error) error {
	return &domain.StoreError{Op: op, Err: err}
}

func newOutboxEvent(idGen IDGenerator, aggregateType, aggregateID, eventType string, payload map[string]any, now time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
		Published:     false,
	}
}

func observeFailure(m *metrics.Metrics, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		m.InsufficientFundsTotal.WithLabelValues(operation).Inc()
	case errors.Is(err, domain.ErrStoreTransaction):
		m.StoreErrors.WithLabelValues(operation).Inc()
	}
}
