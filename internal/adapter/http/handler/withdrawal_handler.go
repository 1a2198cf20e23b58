package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/balanceledger/internal/adapter/http/dto"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// WithdrawalService requests and resolves withdrawals.
type WithdrawalService interface {
	CreateWithdrawal(ctx context.Context, input usecase.CreateWithdrawalInput) (*domain.Withdrawal, error)
	ResolveWithdrawal(ctx context.Context, withdrawalID string, status domain.WithdrawalStatus) (*domain.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error)
	ListWithdrawals(ctx context.Context, input usecase.ListWithdrawalsInput) ([]*domain.Withdrawal, error)
}

// WithdrawalHandler handles withdrawal-related HTTP requests.
type WithdrawalHandler struct {
	withdrawals WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawals WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// Create requests a withdrawal for the caller and holds amount plus fee.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	var req dto.CreateWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput(user.ID)
	if err != nil {
		writeError(w, "invalid request", err)
		return
	}

	withdrawal, err := h.withdrawals.CreateWithdrawal(r.Context(), input)
	if err != nil {
		writeError(w, "failed to create withdrawal", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.WithdrawalFromDomain(withdrawal))
}

// Get returns one withdrawal of the caller.
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	withdrawal, err := h.withdrawals.GetWithdrawal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "failed to get withdrawal", err)
		return
	}

	if err := authorizeOwner(user, withdrawal.UserID); err != nil {
		writeError(w, "failed to get withdrawal", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}

// List lists the caller's withdrawals, newest first.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	limit, offset := pagination(r)
	withdrawals, err := h.withdrawals.ListWithdrawals(r.Context(), usecase.ListWithdrawalsInput{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "failed to list withdrawals", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalsFromDomain(withdrawals))
}

// Resolve approves or rejects a pending withdrawal. Admin only.
func (h *WithdrawalHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	withdrawal, err := h.withdrawals.ResolveWithdrawal(r.Context(), chi.URLParam(r, "id"), domain.WithdrawalStatus(req.Status))
	if err != nil {
		writeError(w, "failed to resolve withdrawal", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}
