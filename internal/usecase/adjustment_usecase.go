package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/metrics"
)

// AdjustmentUseCase appends operator-issued credit and deduct entries and
// lists a user's ledger. Operator deductions are not balance-checked.
type AdjustmentUseCase struct {
	tx         txRunner
	entryRepo  EntryRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

// NewAdjustmentUseCase creates a new AdjustmentUseCase.
func NewAdjustmentUseCase(
	txManager TransactionManager,
	retrier Retrier,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *AdjustmentUseCase {
	return &AdjustmentUseCase{
		tx:         txRunner{txManager: txManager, retrier: retrier},
		entryRepo:  entryRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    metrics,
	}
}

// CreateAdjustmentInput represents input for an operator adjustment.
type CreateAdjustmentInput struct {
	UserID string
	Kind   domain.EntryKind
	Amount decimal.Decimal
	Reason string
}

func (in CreateAdjustmentInput) validate() error {
	if err := domain.ValidateRequired("user_id", in.UserID); err != nil {
		return err
	}
	if !in.Kind.IsValid() {
		return domain.NewValidationError("kind", "must be credit or deduct")
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return err
	}
	return domain.ValidateReason(in.Reason)
}

// CreateAdjustment appends a single entry attributed to the caller in ctx.
func (uc *AdjustmentUseCase) CreateAdjustment(ctx context.Context, input CreateAdjustmentInput) (*domain.Entry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var entry *domain.Entry
	err := uc.tx.run(ctx, "create adjustment", func(ctx context.Context, tx Transaction) error {
		if err := uc.entryRepo.LockUser(ctx, tx, input.UserID); err != nil {
			return storeErr("lock user", err)
		}

		now := time.Now().UTC()
		entry = &domain.Entry{
			ID:        uc.idGen.Generate(),
			UserID:    input.UserID,
			Amount:    input.Amount,
			Kind:      input.Kind,
			Reason:    input.Reason,
			CreatedBy: domain.ActorFromContext(ctx),
			CreatedAt: now,
		}
		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return storeErr("append adjustment", err)
		}

		event := newOutboxEvent(uc.idGen, domain.AggregateTypeEntry, entry.ID, domain.EventTypeAdjustmentCreated, map[string]any{
			"entry_id":   entry.ID,
			"user_id":    entry.UserID,
			"kind":       string(entry.Kind),
			"amount":     entry.Amount.String(),
			"reason":     entry.Reason,
			"created_by": entry.CreatedBy,
		}, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return storeErr("create adjustment event", err)
		}

		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			observeFailure(uc.metrics, "adjustment", err)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AdjustmentsCreated.WithLabelValues(string(entry.Kind)).Inc()
	}

	return entry, nil
}

// ListEntriesInput represents input for listing a user's ledger entries.
type ListEntriesInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListEntries lists a user's ledger entries, newest first.
func (uc *AdjustmentUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.Entry, error) {
	if err := domain.ValidateRequired("user_id", input.UserID); err != nil {
		return nil, err
	}
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.entryRepo.ListByUser(ctx, input.UserID, limit, offset)
}
