package usecase

import (
	"context"
	"fmt"

	"github.com/iho/balanceledger/internal/domain"
)

// BalanceAggregator derives a user's available balance. Implementations
// never cache: a hold must see every entry committed before its lock.
type BalanceAggregator interface {
	Mode() domain.AccountingMode
	ComputeAvailable(ctx context.Context, tx Transaction, userID string) (*domain.Balance, error)
}

// NewBalanceAggregator selects the aggregator for the configured mode.
func NewBalanceAggregator(mode domain.AccountingMode, entryRepo EntryRepository, depositRepo DepositRepository) (BalanceAggregator, error) {
	switch mode {
	case domain.AccountingManual:
		return &ManualAggregator{entryRepo: entryRepo}, nil
	case domain.AccountingForwarding:
		return &ForwardingAggregator{entryRepo: entryRepo, depositRepo: depositRepo}, nil
	default:
		return nil, fmt.Errorf("unknown accounting mode %q", mode)
	}
}

// ManualAggregator computes sum(credit) - sum(deduct).
type ManualAggregator struct {
	entryRepo EntryRepository
}

func (a *ManualAggregator) Mode() domain.AccountingMode {
	return domain.AccountingManual
}

func (a *ManualAggregator) ComputeAvailable(ctx context.Context, tx Transaction, userID string) (*domain.Balance, error) {
	credits, deducts, err := a.entryRepo.SumByKind(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.Balance{
		UserID:    userID,
		Mode:      domain.AccountingManual,
		Credits:   credits,
		Deducts:   deducts,
		Available: credits.Sub(deducts),
	}, nil
}

// ForwardingAggregator computes sum(forwarded deposits) - sum(deduct) + sum(refund credits).
// Operator credits are reported but do not count towards the available balance.
type ForwardingAggregator struct {
	entryRepo   EntryRepository
	depositRepo DepositRepository
}

func (a *ForwardingAggregator) Mode() domain.AccountingMode {
	return domain.AccountingForwarding
}

func (a *ForwardingAggregator) ComputeAvailable(ctx context.Context, tx Transaction, userID string) (*domain.Balance, error) {
	credits, deducts, err := a.entryRepo.SumByKind(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	reversals, err := a.entryRepo.SumReversals(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	forwarded, err := a.depositRepo.SumForwardedByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.Balance{
		UserID:            userID,
		Mode:              domain.AccountingForwarding,
		Credits:           credits,
		Deducts:           deducts,
		ForwardedDeposits: forwarded,
		Reversals:         reversals,
		Available:         forwarded.Sub(deducts).Add(reversals),
	}, nil
}

// BalanceUseCase exposes balance reads to callers.
type BalanceUseCase struct {
	aggregator BalanceAggregator
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(aggregator BalanceAggregator) *BalanceUseCase {
	return &BalanceUseCase{aggregator: aggregator}
}

// GetBalance returns the user's current available balance.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, userID string) (*domain.Balance, error) {
	if err := domain.ValidateRequired("user_id", userID); err != nil {
		return nil, err
	}
	return uc.aggregator.ComputeAvailable(ctx, nil, userID)
}
