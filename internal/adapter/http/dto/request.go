package dto

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// CreateOrderRequest represents a request to place a sell order.
type CreateOrderRequest struct {
	BankDestination string  `json:"bank_destination"`
	Plan            string  `json:"plan"`
	Amount          string  `json:"amount"`
	Rate            string  `json:"rate"`
	InrEquivalent   *string `json:"inr_equivalent,omitempty"`
}

// ToUseCaseInput converts to use case input for the given caller.
func (r *CreateOrderRequest) ToUseCaseInput(userID string) (usecase.CreateOrderInput, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return usecase.CreateOrderInput{}, err
	}

	rate, err := parseDecimal("rate", r.Rate)
	if err != nil {
		return usecase.CreateOrderInput{}, err
	}

	input := usecase.CreateOrderInput{
		UserID:          userID,
		BankDestination: r.BankDestination,
		Plan:            r.Plan,
		Amount:          amount,
		Rate:            rate,
	}

	if r.InrEquivalent != nil {
		inr, err := parseDecimal("inr_equivalent", *r.InrEquivalent)
		if err != nil {
			return usecase.CreateOrderInput{}, err
		}
		input.InrEquivalent = &inr
	}

	return input, nil
}

// CreateWithdrawalRequest represents a request to withdraw on-chain.
type CreateWithdrawalRequest struct {
	DestinationAddress string `json:"destination_address"`
	Network            string `json:"network,omitempty"`
	Amount             string `json:"amount"`
}

// ToUseCaseInput converts to use case input for the given caller.
func (r *CreateWithdrawalRequest) ToUseCaseInput(userID string) (usecase.CreateWithdrawalInput, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return usecase.CreateWithdrawalInput{}, err
	}

	return usecase.CreateWithdrawalInput{
		UserID:             userID,
		DestinationAddress: strings.TrimSpace(r.DestinationAddress),
		Network:            r.Network,
		Amount:             amount,
	}, nil
}

// ResolveRequest carries the terminal status chosen by an administrator.
type ResolveRequest struct {
	Status string `json:"status"`
}

// CreateAdjustmentRequest represents an operator credit or deduct.
type CreateAdjustmentRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAdjustmentRequest) ToUseCaseInput() (usecase.CreateAdjustmentInput, error) {
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return usecase.CreateAdjustmentInput{}, err
	}

	return usecase.CreateAdjustmentInput{
		UserID: r.UserID,
		Kind:   domain.EntryKind(strings.ToLower(r.Kind)),
		Amount: amount,
		Reason: r.Reason,
	}, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, domain.NewValidationError(field, "is required")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, "must be a decimal number")
	}
	return d, nil
}
