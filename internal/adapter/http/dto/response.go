package dto

import (
	"errors"
	"time"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// BalanceResponse represents a derived balance in API responses.
type BalanceResponse struct {
	UserID            string `json:"user_id"`
	Mode              string `json:"mode"`
	Available         string `json:"available"`
	Credits           string `json:"credits"`
	Deducts           string `json:"deducts"`
	ForwardedDeposits string `json:"forwarded_deposits"`
	Reversals         string `json:"reversals"`
}

// BalanceFromDomain converts a domain balance to response.
func BalanceFromDomain(b *domain.Balance) *BalanceResponse {
	return &BalanceResponse{
		UserID:            b.UserID,
		Mode:              string(b.Mode),
		Available:         b.Available.String(),
		Credits:           b.Credits.String(),
		Deducts:           b.Deducts.String(),
		ForwardedDeposits: b.ForwardedDeposits.String(),
		Reversals:         b.Reversals.String(),
	}
}

// EntryResponse represents a ledger adjustment in API responses.
type EntryResponse struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Kind               string    `json:"kind"`
	Amount             string    `json:"amount"`
	Reason             string    `json:"reason"`
	LinkedOrderID      *string   `json:"linked_order_id,omitempty"`
	LinkedWithdrawalID *string   `json:"linked_withdrawal_id,omitempty"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}

// EntryFromDomain converts a domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:                 e.ID,
		UserID:             e.UserID,
		Kind:               string(e.Kind),
		Amount:             e.Amount.String(),
		Reason:             e.Reason,
		LinkedOrderID:      e.LinkedOrderID,
		LinkedWithdrawalID: e.LinkedWithdrawalID,
		CreatedBy:          e.CreatedBy,
		CreatedAt:          e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	return mapSlice(entries, EntryFromDomain)
}

// OrderResponse represents a sell order in API responses.
type OrderResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	Amount          string     `json:"amount"`
	Rate            string     `json:"rate"`
	InrEquivalent   string     `json:"inr_equivalent"`
	BankDestination string     `json:"bank_destination"`
	Plan            string     `json:"plan"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// OrderFromDomain converts a domain order to response.
func OrderFromDomain(o *domain.Order) *OrderResponse {
	return &OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Amount:          o.Amount.String(),
		Rate:            o.Rate.String(),
		InrEquivalent:   o.InrEquivalent.StringFixed(2),
		BankDestination: o.BankDestination,
		Plan:            o.Plan,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
	}
}

// OrdersFromDomain converts domain orders to responses.
func OrdersFromDomain(orders []*domain.Order) []*OrderResponse {
	return mapSlice(orders, OrderFromDomain)
}

// WithdrawalResponse represents a withdrawal in API responses.
type WithdrawalResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Status             string     `json:"status"`
	Amount             string     `json:"amount"`
	FeeAmount          string     `json:"fee_amount"`
	Total              string     `json:"total"`
	DestinationAddress string     `json:"destination_address"`
	Network            string     `json:"network"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// WithdrawalFromDomain converts a domain withdrawal to response.
func WithdrawalFromDomain(w *domain.Withdrawal) *WithdrawalResponse {
	return &WithdrawalResponse{
		ID:                 w.ID,
		UserID:             w.UserID,
		Status:             string(w.Status),
		Amount:             w.Amount.String(),
		FeeAmount:          w.FeeAmount.String(),
		Total:              w.Total().String(),
		DestinationAddress: w.DestinationAddress,
		Network:            w.Network,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
		CompletedAt:        w.CompletedAt,
	}
}

// WithdrawalsFromDomain converts domain withdrawals to responses.
func WithdrawalsFromDomain(withdrawals []*domain.Withdrawal) []*WithdrawalResponse {
	return mapSlice(withdrawals, WithdrawalFromDomain)
}

// DepositResponse represents a reconciled deposit in API responses.
type DepositResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	SourceAddress string    `json:"source_address"`
	SourceTxID    string    `json:"source_tx_id"`
	ForwardTxID   *string   `json:"forward_tx_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DepositFromDomain converts a domain deposit to response.
func DepositFromDomain(d *domain.Deposit) *DepositResponse {
	return &DepositResponse{
		ID:            d.ID,
		UserID:        d.UserID,
		Status:        string(d.Status),
		Amount:        d.Amount.String(),
		SourceAddress: d.SourceAddress,
		SourceTxID:    d.SourceTxID,
		ForwardTxID:   d.ForwardTxID,
		FailureReason: d.FailureReason,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// DepositsFromDomain converts domain deposits to responses.
func DepositsFromDomain(deposits []*domain.Deposit) []*DepositResponse {
	return mapSlice(deposits, DepositFromDomain)
}

// TickReportResponse summarizes a manually triggered sweep.
type TickReportResponse struct {
	Wallets   int `json:"wallets"`
	Forwarded int `json:"forwarded"`
	Failed    int `json:"failed"`
	Idle      int `json:"idle"`
	Errors    int `json:"errors"`
}

// TickReportFromUseCase converts a sweep report to response.
func TickReportFromUseCase(r *usecase.TickReport) *TickReportResponse {
	return &TickReportResponse{
		Wallets:   r.Wallets,
		Forwarded: r.Forwarded,
		Failed:    r.Failed,
		Idle:      r.Idle,
		Errors:    r.Errors,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`

	// Set for insufficient funds.
	Required  string `json:"required,omitempty"`
	Available string `json:"available,omitempty"`
	Fee       string `json:"fee,omitempty"`
	Shortfall string `json:"shortfall,omitempty"`
}

// ErrorFromDomain builds an error body, exposing structured details of
// validation and insufficient funds errors.
func ErrorFromDomain(message string, err error) *ErrorResponse {
	resp := &ErrorResponse{Error: message, Message: err.Error()}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		resp.Field = validationErr.Field
	}

	var fundsErr *domain.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		resp.Required = fundsErr.Required.String()
		resp.Available = fundsErr.Available.String()
		resp.Fee = fundsErr.Fee.String()
		resp.Shortfall = fundsErr.Shortfall().String()
	}

	return resp
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	result := make([]R, len(items))
	for i, item := range items {
		result[i] = fn(item)
	}
	return result
}
