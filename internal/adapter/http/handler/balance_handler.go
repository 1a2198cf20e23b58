package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/balanceledger/internal/adapter/http/dto"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// BalanceService computes available balances.
type BalanceService interface {
	GetBalance(ctx context.Context, userID string) (*domain.Balance, error)
}

// AdjustmentService records and lists ledger adjustments.
type AdjustmentService interface {
	CreateAdjustment(ctx context.Context, input usecase.CreateAdjustmentInput) (*domain.Entry, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
}

// BalanceHandler serves balances and the adjustment ledger.
type BalanceHandler struct {
	balances    BalanceService
	adjustments AdjustmentService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balances BalanceService, adjustments AdjustmentService) *BalanceHandler {
	return &BalanceHandler{balances: balances, adjustments: adjustments}
}

// Get returns the caller's available balance.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}
	h.writeBalance(w, r, user.ID)
}

// GetForUser returns the balance of any user. Admin only.
func (h *BalanceHandler) GetForUser(w http.ResponseWriter, r *http.Request) {
	h.writeBalance(w, r, chi.URLParam(r, "id"))
}

func (h *BalanceHandler) writeBalance(w http.ResponseWriter, r *http.Request, userID string) {
	balance, err := h.balances.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// ListEntries lists the caller's ledger entries, newest first.
func (h *BalanceHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	limit, offset := pagination(r)
	entries, err := h.adjustments.ListEntries(r.Context(), usecase.ListEntriesInput{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// CreateAdjustment appends an operator credit or deduct. Admin only.
func (h *BalanceHandler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, "invalid request", err)
		return
	}

	entry, err := h.adjustments.CreateAdjustment(r.Context(), input)
	if err != nil {
		writeError(w, "failed to create adjustment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}
