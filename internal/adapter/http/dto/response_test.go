package dto

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
)

func TestBalanceFromDomain(t *testing.T) {
	resp := BalanceFromDomain(&domain.Balance{
		UserID:    "user-1",
		Mode:      domain.AccountingManual,
		Credits:   decimal.NewFromInt(100),
		Deducts:   decimal.NewFromInt(40),
		Available: decimal.NewFromInt(60),
	})

	if resp.Available != "60" || resp.Credits != "100" || resp.Deducts != "40" || resp.Mode != "manual" {
		t.Fatalf("unexpected balance response: %+v", resp)
	}
}

func TestOrderFromDomain(t *testing.T) {
	now := time.Now()
	order := &domain.Order{
		ID:            "ord-1",
		UserID:        "user-1",
		Status:        domain.OrderStatusPending,
		Amount:        decimal.NewFromInt(40),
		Rate:          decimal.RequireFromString("83.5"),
		InrEquivalent: decimal.NewFromInt(3340),
		CreatedAt:     now,
	}

	resp := OrderFromDomain(order)
	if resp.Amount != "40" || resp.InrEquivalent != "3340.00" || resp.Status != "pending" {
		t.Fatalf("unexpected order response: %+v", resp)
	}

	list := OrdersFromDomain([]*domain.Order{order})
	if len(list) != 1 || list[0].ID != "ord-1" {
		t.Fatalf("OrdersFromDomain returned %+v", list)
	}
}

func TestWithdrawalFromDomainIncludesTotal(t *testing.T) {
	resp := WithdrawalFromDomain(&domain.Withdrawal{
		ID:        "wd-1",
		Amount:    decimal.NewFromInt(30),
		FeeAmount: decimal.NewFromInt(7),
		Status:    domain.WithdrawalStatusPending,
	})

	if resp.Total != "37" || resp.FeeAmount != "7" {
		t.Fatalf("unexpected withdrawal response: %+v", resp)
	}
}

func TestErrorFromDomain(t *testing.T) {
	fundsErr := &domain.InsufficientFundsError{
		Required:  decimal.NewFromInt(57),
		Available: decimal.NewFromInt(50),
		Fee:       decimal.NewFromInt(7),
	}

	resp := ErrorFromDomain("failed to create withdrawal", fmt.Errorf("create: %w", fundsErr))
	if resp.Required != "57" || resp.Available != "50" || resp.Fee != "7" || resp.Shortfall != "7" {
		t.Fatalf("unexpected insufficient funds body: %+v", resp)
	}

	resp = ErrorFromDomain("invalid request", domain.NewValidationError("amount", "must be positive"))
	if resp.Field != "amount" || resp.Required != "" {
		t.Fatalf("unexpected validation body: %+v", resp)
	}

	resp = ErrorFromDomain("boom", errors.New("plain"))
	if resp.Field != "" || resp.Shortfall != "" || resp.Message != "plain" {
		t.Fatalf("unexpected plain body: %+v", resp)
	}
}
