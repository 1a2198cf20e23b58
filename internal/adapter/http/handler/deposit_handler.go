package handler

import (
	"context"
	"net/http"

	"github.com/iho/balanceledger/internal/adapter/http/dto"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// DepositService lists deposits and runs the forwarding sweep.
type DepositService interface {
	ListDeposits(ctx context.Context, input usecase.ListDepositsInput) ([]*domain.Deposit, error)
	RunTick(ctx context.Context) (*usecase.TickReport, error)
}

// DepositHandler handles deposit-related HTTP requests.
type DepositHandler struct {
	deposits DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(deposits DepositService) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

// List lists the caller's deposits, newest first.
func (h *DepositHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		writeError(w, "unauthorized", err)
		return
	}

	limit, offset := pagination(r)
	deposits, err := h.deposits.ListDeposits(r.Context(), usecase.ListDepositsInput{
		UserID: user.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "failed to list deposits", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DepositsFromDomain(deposits))
}

// Sweep runs one reconciliation tick now. Admin only.
func (h *DepositHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.deposits.RunTick(r.Context())
	if err != nil {
		writeError(w, "failed to run deposit sweep", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TickReportFromUseCase(report))
}
