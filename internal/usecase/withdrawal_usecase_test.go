package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

func withdrawalInput(userID string, amount int64) usecase.CreateWithdrawalInput {
	return usecase.CreateWithdrawalInput{
		UserID:             userID,
		DestinationAddress: "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE",
		Amount:             decimal.NewFromInt(amount),
	}
}

func TestWithdrawalUseCase_CreateWithdrawal_Validation(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))

	tests := []struct {
		name  string
		input usecase.CreateWithdrawalInput
		field string
	}{
		{
			name:  "zero amount",
			input: withdrawalInput("user-1", 0),
			field: "amount",
		},
		{
			name: "empty address",
			input: usecase.CreateWithdrawalInput{
				UserID: "user-1",
				Amount: decimal.NewFromInt(10),
			},
			field: "destination_address",
		},
		{
			name: "address with whitespace",
			input: usecase.CreateWithdrawalInput{
				UserID:             "user-1",
				DestinationAddress: "TQn9 Y2kh",
				Amount:             decimal.NewFromInt(10),
			},
			field: "destination_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateWithdrawal(context.Background(), tt.input)

			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %s, want %s", vErr.Field, tt.field)
			}
		})
	}
}

func TestWithdrawalUseCase_CreateWithdrawal_FeeMakesItInsufficient(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 50)

	_, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 50))

	var insufficient *domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Required.Equal(decimal.NewFromInt(57)) {
		t.Errorf("required = %s, want 57", insufficient.Required)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(50)) {
		t.Errorf("available = %s, want 50", insufficient.Available)
	}
	if !insufficient.Fee.Equal(decimal.NewFromInt(7)) {
		t.Errorf("fee = %s, want 7", insufficient.Fee)
	}
	if f.store.Withdrawals() != 0 {
		t.Errorf("expected no withdrawal record, got %d", f.store.Withdrawals())
	}
	assertAvailable(t, f, "user-1", 50)
}

func TestWithdrawalUseCase_CreateWithdrawal_FixedPointBoundary(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{name: "just under", amount: "42.999999", wantErr: false},
		{name: "exact", amount: "43", wantErr: false},
		{name: "just over", amount: "43.000001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, domain.AccountingManual)
			uc := f.withdrawals(decimal.NewFromInt(7))
			f.credit(t, "user-1", 50)

			input := withdrawalInput("user-1", 0)
			input.Amount = decimal.RequireFromString(tt.amount)

			_, err := uc.CreateWithdrawal(context.Background(), input)
			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr = %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr && !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Fatalf("expected insufficient funds, got %v", err)
			}
		})
	}
}

func TestWithdrawalUseCase_RejectRefundsHold(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 100)

	withdrawal, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 30))
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}
	if withdrawal.Status != domain.WithdrawalStatusPending {
		t.Errorf("status = %s, want pending", withdrawal.Status)
	}
	if withdrawal.Network != usecase.DefaultNetwork {
		t.Errorf("network = %s, want %s", withdrawal.Network, usecase.DefaultNetwork)
	}
	if !withdrawal.FeeAmount.Equal(decimal.NewFromInt(7)) {
		t.Errorf("fee = %s, want 7", withdrawal.FeeAmount)
	}

	holds := f.store.EntriesByReason(domain.WithdrawalHoldReason(withdrawal.ID))
	if len(holds) != 1 || !holds[0].Amount.Equal(decimal.NewFromInt(37)) {
		t.Fatalf("expected one hold of 37, got %+v", holds)
	}
	assertAvailable(t, f, "user-1", 63)

	rejected, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected)
	if err != nil {
		t.Fatalf("ResolveWithdrawal: %v", err)
	}
	if rejected.Status != domain.WithdrawalStatusRejected || rejected.CompletedAt == nil {
		t.Errorf("unexpected resolved withdrawal: %+v", rejected)
	}

	refunds := f.store.EntriesByReason(domain.WithdrawalRefundReason(withdrawal.ID))
	if len(refunds) != 1 {
		t.Fatalf("expected one refund, got %d", len(refunds))
	}
	if refunds[0].Kind != domain.EntryKindCredit || !refunds[0].Amount.Equal(decimal.NewFromInt(37)) {
		t.Errorf("unexpected refund %+v", refunds[0])
	}
	assertAvailable(t, f, "user-1", 100)
}

func TestWithdrawalUseCase_RejectRefundsHold_ForwardingMode(t *testing.T) {
	f := newFixture(t, domain.AccountingForwarding)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.forwardedDeposit(t, "user-1", "dep-1", 100)
	assertAvailable(t, f, "user-1", 100)

	withdrawal, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 30))
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}
	assertAvailable(t, f, "user-1", 63)

	if _, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected); err != nil {
		t.Fatalf("ResolveWithdrawal: %v", err)
	}
	assertAvailable(t, f, "user-1", 100)

	balance, err := f.balances.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Reversals.Equal(decimal.NewFromInt(37)) {
		t.Errorf("reversals = %s, want 37", balance.Reversals)
	}
}

func TestWithdrawalUseCase_RejectTwiceRefundsOnce(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 100)

	withdrawal, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 30))
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}

	if _, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected); err != nil {
		t.Fatalf("first reject: %v", err)
	}

	_, err = uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	if refunds := f.store.EntriesByReason(domain.WithdrawalRefundReason(withdrawal.ID)); len(refunds) != 1 {
		t.Fatalf("expected exactly one refund, got %d", len(refunds))
	}
	assertAvailable(t, f, "user-1", 100)
}

func TestWithdrawalUseCase_RetryAfterCommitFailureRefundsOnce(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 100)

	withdrawal, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 30))
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}

	f.store.CommitFunc = func(ctx context.Context) error {
		return errors.New("connection reset")
	}

	_, err = uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected)
	if !errors.Is(err, domain.ErrStoreTransaction) {
		t.Fatalf("expected store error, got %v", err)
	}

	f.store.CommitFunc = nil

	if refunds := f.store.EntriesByReason(domain.WithdrawalRefundReason(withdrawal.ID)); len(refunds) != 0 {
		t.Fatalf("failed commit must not leave a refund, got %d", len(refunds))
	}

	if _, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if refunds := f.store.EntriesByReason(domain.WithdrawalRefundReason(withdrawal.ID)); len(refunds) != 1 {
		t.Fatalf("expected one refund after retry, got %d", len(refunds))
	}
	assertAvailable(t, f, "user-1", 100)
}

func TestWithdrawalUseCase_RefundSkippedWhenTagExists(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 100)

	withdrawal, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 30))
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}

	ctx := context.Background()
	tx, _ := f.store.Begin(ctx)
	if err := f.store.EntryRepository().Create(ctx, tx, &domain.Entry{
		ID:        "seeded-refund",
		UserID:    "user-1",
		Kind:      domain.EntryKindCredit,
		Amount:    decimal.NewFromInt(37),
		Reason:    domain.WithdrawalRefundReason(withdrawal.ID),
		CreatedBy: "admin-1",
	}); err != nil {
		t.Fatalf("seed refund: %v", err)
	}
	_ = tx.Commit(ctx)

	if _, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected); err != nil {
		t.Fatalf("ResolveWithdrawal: %v", err)
	}

	if refunds := f.store.EntriesByReason(domain.WithdrawalRefundReason(withdrawal.ID)); len(refunds) != 1 {
		t.Fatalf("expected the existing refund only, got %d", len(refunds))
	}
	assertAvailable(t, f, "user-1", 100)
}

func TestWithdrawalUseCase_ApproveKeepsHold(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 100)

	withdrawal, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 30))
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}

	entriesBefore := len(f.store.Entries())

	approved, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusApproved)
	if err != nil {
		t.Fatalf("ResolveWithdrawal: %v", err)
	}
	if approved.Status != domain.WithdrawalStatusApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	if got := len(f.store.Entries()); got != entriesBefore {
		t.Errorf("approval must not append entries, got %d want %d", got, entriesBefore)
	}
	assertAvailable(t, f, "user-1", 63)

	if _, err := uc.ResolveWithdrawal(adminContext(), withdrawal.ID, domain.WithdrawalStatusRejected); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestWithdrawalUseCase_Fee(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)

	if fee := f.withdrawals(decimal.NewFromInt(-1)).Fee(); !fee.Equal(usecase.DefaultWithdrawalFee) {
		t.Errorf("negative fee should fall back to default, got %s", fee)
	}
	if fee := f.withdrawals(decimal.Zero).Fee(); !fee.IsZero() {
		t.Errorf("zero fee should be kept, got %s", fee)
	}
}

func TestWithdrawalUseCase_ResolveWithdrawal_InvalidInput(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))

	if _, err := uc.ResolveWithdrawal(adminContext(), "missing", domain.WithdrawalStatusApproved); !errors.Is(err, domain.ErrWithdrawalNotFound) {
		t.Errorf("expected ErrWithdrawalNotFound, got %v", err)
	}
	if _, err := uc.ResolveWithdrawal(adminContext(), "w-1", domain.WithdrawalStatusPending); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestWithdrawalUseCase_ListWithdrawals(t *testing.T) {
	f := newFixture(t, domain.AccountingManual)
	uc := f.withdrawals(decimal.NewFromInt(7))
	f.credit(t, "user-1", 100)

	for i := 0; i < 3; i++ {
		if _, err := uc.CreateWithdrawal(context.Background(), withdrawalInput("user-1", 10)); err != nil {
			t.Fatalf("CreateWithdrawal: %v", err)
		}
	}

	list, err := uc.ListWithdrawals(context.Background(), usecase.ListWithdrawalsInput{UserID: "user-1", Limit: 2})
	if err != nil {
		t.Fatalf("ListWithdrawals: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
}
