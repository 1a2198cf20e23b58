package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/metrics"
)

// DefaultWithdrawalFee is the flat network fee charged per withdrawal.
var DefaultWithdrawalFee = decimal.NewFromInt(7)

// WithdrawalUseCase holds amount+fee on request and releases or refunds the
// hold when an admin resolves the withdrawal.
type WithdrawalUseCase struct {
	tx             txRunner
	entryRepo      EntryRepository
	withdrawalRepo WithdrawalRepository
	outboxRepo     OutboxRepository
	aggregator     BalanceAggregator
	idGen          IDGenerator
	fee            decimal.Decimal
	metrics        *metrics.Metrics
}

// NewWithdrawalUseCase creates a new WithdrawalUseCase. A negative fee falls
// back to DefaultWithdrawalFee.
func NewWithdrawalUseCase(
	txManager TransactionManager,
	retrier Retrier,
	entryRepo EntryRepository,
	withdrawalRepo WithdrawalRepository,
	outboxRepo OutboxRepository,
	aggregator BalanceAggregator,
	idGen IDGenerator,
	fee decimal.Decimal,
	metrics *metrics.Metrics,
) *WithdrawalUseCase {
	if fee.IsNegative() {
		fee = DefaultWithdrawalFee
	}

	return &WithdrawalUseCase{
		tx:             txRunner{txManager: txManager, retrier: retrier},
		entryRepo:      entryRepo,
		withdrawalRepo: withdrawalRepo,
		outboxRepo:     outboxRepo,
		aggregator:     aggregator,
		idGen:          idGen,
		fee:            fee,
		metrics:        metrics,
	}
}

// Fee returns the fee applied to new withdrawals.
func (uc *WithdrawalUseCase) Fee() decimal.Decimal {
	return uc.fee
}

// CreateWithdrawalInput represents input for requesting a withdrawal.
type CreateWithdrawalInput struct {
	UserID             string
	DestinationAddress string
	Network            string
	Amount             decimal.Decimal
}

func (in CreateWithdrawalInput) validate() error {
	if err := domain.ValidateRequired("user_id", in.UserID); err != nil {
		return err
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return err
	}
	return domain.ValidateAddress(in.DestinationAddress)
}

// CreateWithdrawal holds amount+fee and records a pending withdrawal.
func (uc *WithdrawalUseCase) CreateWithdrawal(ctx context.Context, input CreateWithdrawalInput) (*domain.Withdrawal, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	network := input.Network
	if network == "" {
		network = DefaultNetwork
	}

	start := time.Now()
	required := input.Amount.Add(uc.fee)

	var withdrawal *domain.Withdrawal
	err := uc.tx.run(ctx, "create withdrawal", func(ctx context.Context, tx Transaction) error {
		if err := uc.entryRepo.LockUser(ctx, tx, input.UserID); err != nil {
			return storeErr("lock user", err)
		}

		balance, err := uc.aggregator.ComputeAvailable(ctx, tx, input.UserID)
		if err != nil {
			return storeErr("compute balance", err)
		}

		if required.GreaterThan(balance.Available) {
			return &domain.InsufficientFundsError{
				Required:  required,
				Available: balance.Available,
				Fee:       uc.fee,
			}
		}

		now := time.Now().UTC()
		withdrawal = &domain.Withdrawal{
			ID:                 uc.idGen.Generate(),
			UserID:             input.UserID,
			Amount:             input.Amount,
			FeeAmount:          uc.fee,
			DestinationAddress: input.DestinationAddress,
			Network:            network,
			Status:             domain.WithdrawalStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		if err := uc.withdrawalRepo.Create(ctx, tx, withdrawal); err != nil {
			return storeErr("create withdrawal", err)
		}

		withdrawalID := withdrawal.ID
		hold := &domain.Entry{
			ID:                 uc.idGen.Generate(),
			UserID:             withdrawal.UserID,
			Amount:             required,
			Kind:               domain.EntryKindDeduct,
			Reason:             domain.WithdrawalHoldReason(withdrawal.ID),
			LinkedWithdrawalID: &withdrawalID,
			CreatedBy:          withdrawal.UserID,
			CreatedAt:          now,
		}
		if err := uc.entryRepo.Create(ctx, tx, hold); err != nil {
			return storeErr("append withdrawal hold", err)
		}

		event := newOutboxEvent(uc.idGen, domain.AggregateTypeWithdrawal, withdrawal.ID, domain.EventTypeWithdrawalCreated, map[string]any{
			"withdrawal_id":       withdrawal.ID,
			"user_id":             withdrawal.UserID,
			"amount":              withdrawal.Amount.String(),
			"fee_amount":          withdrawal.FeeAmount.String(),
			"destination_address": withdrawal.DestinationAddress,
			"network":             withdrawal.Network,
		}, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return storeErr("create withdrawal event", err)
		}

		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			observeFailure(uc.metrics, "withdrawal", err)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.WithdrawalsCreated.Inc()
		uc.metrics.WithdrawalDuration.Observe(time.Since(start).Seconds())
	}

	return withdrawal, nil
}

// ResolveWithdrawal approves or rejects a pending withdrawal. Rejection
// credits amount+fee back exactly once.
func (uc *WithdrawalUseCase) ResolveWithdrawal(ctx context.Context, withdrawalID string, status domain.WithdrawalStatus) (*domain.Withdrawal, error) {
	if err := domain.ValidateRequired("withdrawal_id", withdrawalID); err != nil {
		return nil, err
	}
	if !status.IsTerminal() {
		return nil, domain.NewValidationError("status", "must be approved or rejected")
	}

	start := time.Now()

	var withdrawal *domain.Withdrawal
	err := uc.tx.run(ctx, "resolve withdrawal", func(ctx context.Context, tx Transaction) error {
		var err error
		withdrawal, err = uc.withdrawalRepo.GetByIDForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}

		if withdrawal.Status != domain.WithdrawalStatusPending {
			return &domain.InvalidTransitionError{Entity: "withdrawal", ID: withdrawal.ID, Current: string(withdrawal.Status)}
		}

		now := time.Now().UTC()

		if status == domain.WithdrawalStatusRejected {
			if err := uc.entryRepo.LockUser(ctx, tx, withdrawal.UserID); err != nil {
				return storeErr("lock user", err)
			}
			if err := uc.refund(ctx, tx, withdrawal, now); err != nil {
				return err
			}
		}

		if err := uc.withdrawalRepo.UpdateStatus(ctx, tx, withdrawal.ID, status, now); err != nil {
			return storeErr("update withdrawal status", err)
		}

		withdrawal.Status = status
		withdrawal.CompletedAt = &now
		withdrawal.UpdatedAt = now

		eventType := domain.EventTypeWithdrawalApproved
		if status == domain.WithdrawalStatusRejected {
			eventType = domain.EventTypeWithdrawalRejected
		}

		event := newOutboxEvent(uc.idGen, domain.AggregateTypeWithdrawal, withdrawal.ID, eventType, map[string]any{
			"withdrawal_id": withdrawal.ID,
			"user_id":       withdrawal.UserID,
			"amount":        withdrawal.Amount.String(),
			"fee_amount":    withdrawal.FeeAmount.String(),
			"status":        string(status),
			"by":            domain.ActorFromContext(ctx),
		}, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return storeErr("create withdrawal event", err)
		}

		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			observeFailure(uc.metrics, "withdrawal_resolve", err)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.WithdrawalsResolved.WithLabelValues(string(status)).Inc()
		uc.metrics.WithdrawalDuration.Observe(time.Since(start).Seconds())
	}

	return withdrawal, nil
}

func (uc *WithdrawalUseCase) refund(ctx context.Context, tx Transaction, withdrawal *domain.Withdrawal, now time.Time) error {
	reason := domain.WithdrawalRefundReason(withdrawal.ID)

	refunded, err := uc.entryRepo.ExistsByReason(ctx, tx, withdrawal.UserID, reason)
	if err != nil {
		return storeErr("check withdrawal refund", err)
	}
	if refunded {
		return nil
	}

	withdrawalID := withdrawal.ID
	entry := &domain.Entry{
		ID:                 uc.idGen.Generate(),
		UserID:             withdrawal.UserID,
		Amount:             withdrawal.Total(),
		Kind:               domain.EntryKindCredit,
		Reason:             reason,
		LinkedWithdrawalID: &withdrawalID,
		CreatedBy:          domain.ActorFromContext(ctx),
		CreatedAt:          now,
	}
	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return storeErr("append withdrawal refund", err)
	}

	return nil
}

// GetWithdrawal retrieves a withdrawal by ID.
func (uc *WithdrawalUseCase) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return uc.withdrawalRepo.GetByID(ctx, id)
}

// ListWithdrawalsInput represents input for listing a user's withdrawals.
type ListWithdrawalsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListWithdrawals lists a user's withdrawals, newest first.
func (uc *WithdrawalUseCase) ListWithdrawals(ctx context.Context, input ListWithdrawalsInput) ([]*domain.Withdrawal, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.withdrawalRepo.ListByUser(ctx, input.UserID, limit, offset)
}
