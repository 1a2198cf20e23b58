package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransition = errors.New("already processed")
	ErrStoreTransaction  = errors.New("store transaction failed")
	ErrExternalChain     = errors.New("external chain error")

	ErrInvalidAmount = errors.New("amount must be positive")

	ErrOrderNotFound      = errors.New("order not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrDepositNotFound    = errors.New("deposit not found")
	ErrDuplicateDeposit   = errors.New("deposit already recorded")
)

// ValidationError rejects a request before it touches the ledger.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientFundsError carries the amounts a caller needs to render the shortfall.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
	Fee       decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Shortfall is how much more the user would need.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// InvalidTransitionError is returned when resolving a record that is no longer pending.
type InvalidTransitionError struct {
	Entity  string
	ID      string
	Current string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s already processed (status %s)", e.Entity, e.ID, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// StoreError wraps a failed transactional write. Nothing of the operation is visible.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreTransaction
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ChainError wraps a failure of the indexer, transfer submission or receipt lookup.
type ChainError struct {
	Op  string
	Err error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain %s: %v", e.Op, e.Err)
}

func (e *ChainError) Is(target error) bool {
	return target == ErrExternalChain
}

func (e *ChainError) Unwrap() error {
	return e.Err
}
