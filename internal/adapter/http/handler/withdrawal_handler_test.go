package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/adapter/http/dto"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

type withdrawalServiceStub struct {
	createFn  func(ctx context.Context, input usecase.CreateWithdrawalInput) (*domain.Withdrawal, error)
	resolveFn func(ctx context.Context, id string, status domain.WithdrawalStatus) (*domain.Withdrawal, error)
	getFn     func(ctx context.Context, id string) (*domain.Withdrawal, error)
	listFn    func(ctx context.Context, input usecase.ListWithdrawalsInput) ([]*domain.Withdrawal, error)
}

func (s *withdrawalServiceStub) CreateWithdrawal(ctx context.Context, input usecase.CreateWithdrawalInput) (*domain.Withdrawal, error) {
	return s.createFn(ctx, input)
}

func (s *withdrawalServiceStub) ResolveWithdrawal(ctx context.Context, id string, status domain.WithdrawalStatus) (*domain.Withdrawal, error) {
	return s.resolveFn(ctx, id, status)
}

func (s *withdrawalServiceStub) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return s.getFn(ctx, id)
}

func (s *withdrawalServiceStub) ListWithdrawals(ctx context.Context, input usecase.ListWithdrawalsInput) ([]*domain.Withdrawal, error) {
	return s.listFn(ctx, input)
}

func TestWithdrawalHandler_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got usecase.CreateWithdrawalInput
		h := NewWithdrawalHandler(&withdrawalServiceStub{
			createFn: func(ctx context.Context, input usecase.CreateWithdrawalInput) (*domain.Withdrawal, error) {
				got = input
				return &domain.Withdrawal{
					ID:                 "w1",
					UserID:             input.UserID,
					DestinationAddress: input.DestinationAddress,
					Status:             domain.WithdrawalStatusPending,
					Amount:             input.Amount,
					FeeAmount:          decimal.NewFromInt(7),
				}, nil
			},
		})

		body := `{"destination_address":"TXYZabc123","amount":"100"}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals", bytes.NewReader([]byte(body))), "u1", domain.RoleUser)
		rr := httptest.NewRecorder()
		h.Create(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		if got.UserID != "u1" {
			t.Fatalf("withdrawal must be requested for the caller, got %q", got.UserID)
		}

		var resp dto.WithdrawalResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Total != "107" || resp.FeeAmount != "7" {
			t.Fatalf("unexpected withdrawal %+v", resp)
		}
	})

	t.Run("insufficient funds reports fee", func(t *testing.T) {
		h := NewWithdrawalHandler(&withdrawalServiceStub{
			createFn: func(ctx context.Context, input usecase.CreateWithdrawalInput) (*domain.Withdrawal, error) {
				return nil, &domain.InsufficientFundsError{
					Required:  decimal.NewFromInt(107),
					Available: decimal.NewFromInt(100),
					Fee:       decimal.NewFromInt(7),
				}
			},
		})

		body := `{"destination_address":"TXYZabc123","amount":"100"}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals", bytes.NewReader([]byte(body))), "u1", domain.RoleUser)
		rr := httptest.NewRecorder()
		h.Create(rr, req)

		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rr.Code)
		}

		var resp dto.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Required != "107" || resp.Available != "100" {
			t.Fatalf("unexpected error body %+v", resp)
		}
	})
}

func TestWithdrawalHandler_Get(t *testing.T) {
	h := NewWithdrawalHandler(&withdrawalServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Withdrawal, error) {
			return &domain.Withdrawal{ID: id, UserID: "u1"}, nil
		},
	})

	req := withUser(withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals/w1", nil), "id", "w1"), "u2", domain.RoleUser)
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestWithdrawalHandler_List(t *testing.T) {
	var got usecase.ListWithdrawalsInput
	h := NewWithdrawalHandler(&withdrawalServiceStub{
		listFn: func(ctx context.Context, input usecase.ListWithdrawalsInput) ([]*domain.Withdrawal, error) {
			got = input
			return nil, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals?limit=3", nil), "u1", domain.RoleUser)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got.UserID != "u1" || got.Limit != 3 {
		t.Fatalf("unexpected list input %+v", got)
	}
}

func TestWithdrawalHandler_Resolve(t *testing.T) {
	var gotStatus domain.WithdrawalStatus
	h := NewWithdrawalHandler(&withdrawalServiceStub{
		resolveFn: func(ctx context.Context, id string, status domain.WithdrawalStatus) (*domain.Withdrawal, error) {
			gotStatus = status
			return &domain.Withdrawal{ID: id, UserID: "u1", Status: status}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/withdrawals/w1/resolve", bytes.NewReader([]byte(`{"status":"rejected"}`)))
	rr := httptest.NewRecorder()
	h.Resolve(rr, withURLParam(req, "id", "w1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotStatus != domain.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %q", gotStatus)
	}
}
