package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
	"github.com/iho/balanceledger/internal/usecase/mocks"
)

type fixture struct {
	store       *mocks.MemoryStore
	idGen       *mocks.SequenceIDGenerator
	aggregator  usecase.BalanceAggregator
	balances    *usecase.BalanceUseCase
	adjustments *usecase.AdjustmentUseCase
}

func newFixture(t *testing.T, mode domain.AccountingMode) *fixture {
	t.Helper()

	store := mocks.NewMemoryStore()
	idGen := mocks.NewSequenceIDGenerator("id")

	aggregator, err := usecase.NewBalanceAggregator(mode, store.EntryRepository(), store.DepositRepository())
	if err != nil {
		t.Fatalf("NewBalanceAggregator: %v", err)
	}

	return &fixture{
		store:       store,
		idGen:       idGen,
		aggregator:  aggregator,
		balances:    usecase.NewBalanceUseCase(aggregator),
		adjustments: usecase.NewAdjustmentUseCase(store, nil, store.EntryRepository(), store.OutboxRepository(), idGen, nil),
	}
}

func (f *fixture) orders(policy domain.OrderFailurePolicy) *usecase.OrderUseCase {
	return usecase.NewOrderUseCase(f.store, nil, f.store.EntryRepository(), f.store.OrderRepository(),
		f.store.OutboxRepository(), f.aggregator, f.idGen, policy, nil)
}

func (f *fixture) withdrawals(fee decimal.Decimal) *usecase.WithdrawalUseCase {
	return usecase.NewWithdrawalUseCase(f.store, nil, f.store.EntryRepository(), f.store.WithdrawalRepository(),
		f.store.OutboxRepository(), f.aggregator, f.idGen, fee, nil)
}

func (f *fixture) credit(t *testing.T, userID string, amount int64) {
	t.Helper()

	_, err := f.adjustments.CreateAdjustment(context.Background(), usecase.CreateAdjustmentInput{
		UserID: userID,
		Kind:   domain.EntryKindCredit,
		Amount: decimal.NewFromInt(amount),
		Reason: "manual top-up",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
}

// forwardedDeposit records a deposit of amount already forwarded to the master wallet.
func (f *fixture) forwardedDeposit(t *testing.T, userID, id string, amount int64) {
	t.Helper()

	ctx := context.Background()
	deposits := f.store.DepositRepository()
	tx, _ := f.store.Begin(ctx)
	defer func() { _ = tx.Commit(ctx) }()

	now := time.Now()
	if err := deposits.Create(ctx, tx, &domain.Deposit{
		ID:         id,
		UserID:     userID,
		SourceTxID: id + "-src",
		Amount:     decimal.NewFromInt(amount),
		Status:     domain.DepositStatusPending,
		CreatedAt:  now,
	}); err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if err := deposits.MarkForwarded(ctx, tx, id, "fwd-"+id, now); err != nil {
		t.Fatalf("mark forwarded: %v", err)
	}
}

func (f *fixture) available(t *testing.T, userID string) decimal.Decimal {
	t.Helper()

	balance, err := f.balances.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	return balance.Available
}

func assertAvailable(t *testing.T, f *fixture, userID string, want int64) {
	t.Helper()

	if got := f.available(t, userID); !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("available = %s, want %d", got, want)
	}
}

func adminContext() context.Context {
	return domain.ContextWithUser(context.Background(), &domain.User{ID: "admin-1", Role: domain.RoleAdmin})
}
