package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
	"github.com/iho/balanceledger/internal/usecase/mocks"
)

func TestNewBalanceAggregator(t *testing.T) {
	store := mocks.NewMemoryStore()

	tests := []struct {
		mode    domain.AccountingMode
		wantErr bool
	}{
		{mode: domain.AccountingManual},
		{mode: domain.AccountingForwarding},
		{mode: domain.AccountingMode("hybrid"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			agg, err := usecase.NewBalanceAggregator(tt.mode, store.EntryRepository(), store.DepositRepository())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if agg.Mode() != tt.mode {
				t.Fatalf("Mode() = %s, want %s", agg.Mode(), tt.mode)
			}
		})
	}
}

func TestManualAggregator_CreditsMinusDeducts(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	ctx := adminContext()

	f.credit(t, "user-1", 100)
	f.credit(t, "user-1", 25)
	f.credit(t, "user-2", 999)

	if _, err := f.adjustments.CreateAdjustment(ctx, usecase.CreateAdjustmentInput{
		UserID: "user-1",
		Kind:   domain.EntryKindDeduct,
		Amount: decimal.RequireFromString("10.5"),
		Reason: "fee correction",
	}); err != nil {
		t.Fatalf("deduct: %v", err)
	}

	balance, err := f.balances.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if !balance.Credits.Equal(decimal.NewFromInt(125)) {
		t.Errorf("credits = %s, want 125", balance.Credits)
	}
	if !balance.Deducts.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("deducts = %s, want 10.5", balance.Deducts)
	}
	if !balance.Available.Equal(decimal.RequireFromString("114.5")) {
		t.Errorf("available = %s, want 114.5", balance.Available)
	}
	if balance.Mode != domain.AccountingManual {
		t.Errorf("mode = %s, want manual", balance.Mode)
	}
}

func TestForwardingAggregator_IgnoresCredits(t *testing.T) {
	f := newFixture(t, domain.AccountingForwarding)
	ctx := context.Background()
	deposits := f.store.DepositRepository()

	now := time.Now()
	for i, d := range []struct {
		id     string
		amount int64
		status domain.DepositStatus
	}{
		{id: "dep-1", amount: 80, status: domain.DepositStatusForwarded},
		{id: "dep-2", amount: 20, status: domain.DepositStatusForwarded},
		{id: "dep-3", amount: 500, status: domain.DepositStatusFailed},
		{id: "dep-4", amount: 300, status: domain.DepositStatusPending},
	} {
		tx, _ := f.store.Begin(ctx)
		err := deposits.Create(ctx, tx, &domain.Deposit{
			ID:         d.id,
			UserID:     "user-1",
			SourceTxID: d.id + "-src",
			Amount:     decimal.NewFromInt(d.amount),
			Status:     domain.DepositStatusPending,
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create deposit: %v", err)
		}
		switch d.status {
		case domain.DepositStatusForwarded:
			err = deposits.MarkForwarded(ctx, tx, d.id, "fwd-"+d.id, now)
		case domain.DepositStatusFailed:
			err = deposits.MarkFailed(ctx, tx, d.id, "reverted", nil, now)
		}
		if err != nil {
			t.Fatalf("mark deposit: %v", err)
		}
		_ = tx.Commit(ctx)
	}

	f.credit(t, "user-1", 1000)

	if _, err := f.adjustments.CreateAdjustment(ctx, usecase.CreateAdjustmentInput{
		UserID: "user-1",
		Kind:   domain.EntryKindDeduct,
		Amount: decimal.NewFromInt(30),
		Reason: "sell",
	}); err != nil {
		t.Fatalf("deduct: %v", err)
	}

	balance, err := f.balances.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if !balance.ForwardedDeposits.Equal(decimal.NewFromInt(100)) {
		t.Errorf("forwarded = %s, want 100", balance.ForwardedDeposits)
	}
	if !balance.Available.Equal(decimal.NewFromInt(70)) {
		t.Errorf("available = %s, want 70", balance.Available)
	}
	if !balance.Credits.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("credits = %s, want 1000", balance.Credits)
	}
}

func TestForwardingAggregator_CountsRefundCredits(t *testing.T) {
	f := newFixture(t, domain.AccountingForwarding)
	ctx := context.Background()
	f.forwardedDeposit(t, "user-1", "dep-1", 100)

	for _, e := range []*domain.Entry{
		{ID: "e-1", UserID: "user-1", Kind: domain.EntryKindDeduct, Amount: decimal.NewFromInt(37), Reason: domain.WithdrawalHoldReason("w-1")},
		{ID: "e-2", UserID: "user-1", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(37), Reason: domain.WithdrawalRefundReason("w-1")},
		{ID: "e-3", UserID: "user-1", Kind: domain.EntryKindDeduct, Amount: decimal.NewFromInt(10), Reason: domain.OrderHoldReason("o-1")},
		{ID: "e-4", UserID: "user-1", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(10), Reason: domain.OrderRefundReason("o-1")},
		{ID: "e-5", UserID: "user-1", Kind: domain.EntryKindDeduct, Amount: decimal.NewFromInt(5), Reason: domain.OrderHoldReason("o-2")},
		{ID: "e-6", UserID: "user-1", Kind: domain.EntryKindCredit, Amount: decimal.NewFromInt(500), Reason: "bonus"},
	} {
		tx, _ := f.store.Begin(ctx)
		if err := f.store.EntryRepository().Create(ctx, tx, e); err != nil {
			t.Fatalf("create entry: %v", err)
		}
		_ = tx.Commit(ctx)
	}

	balance, err := f.balances.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Reversals.Equal(decimal.NewFromInt(47)) {
		t.Errorf("reversals = %s, want 47", balance.Reversals)
	}
	if !balance.Available.Equal(decimal.NewFromInt(95)) {
		t.Errorf("available = %s, want 95", balance.Available)
	}
}

func TestBalanceUseCase_GetBalance_RequiresUser(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)

	_, err := f.balances.GetBalance(context.Background(), "  ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBalanceUseCase_UnknownUserHasZeroBalance(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	assertAvailable(t, f, "nobody", 0)
}
