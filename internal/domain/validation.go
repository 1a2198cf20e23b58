package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxAmount        = "1000000000000" // 1 trillion
	MaxReasonLength  = 255
	MaxAddressLength = 128
	MaxPageSize      = 1000
	DefaultPageSize  = 50
)

var maxAmount = decimal.RequireFromString(MaxAmount)

// ValidateAmount validates an order, withdrawal or adjustment amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("amount", ErrInvalidAmount.Error())
	}

	if amount.GreaterThan(maxAmount) {
		return NewValidationError("amount", fmt.Sprintf("exceeds maximum of %s", MaxAmount))
	}

	return nil
}

// ValidateRequired rejects blank string fields.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "is required")
	}
	return nil
}

// ValidateAddress validates a destination address
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return NewValidationError("destination_address", "is required")
	}

	if len(address) > MaxAddressLength {
		return NewValidationError("destination_address", fmt.Sprintf("exceeds %d characters", MaxAddressLength))
	}

	if strings.ContainsAny(address, " \t\n") {
		return NewValidationError("destination_address", "must not contain whitespace")
	}

	return nil
}

// ValidateReason validates a free-text adjustment reason.
func ValidateReason(reason string) error {
	if err := ValidateRequired("reason", reason); err != nil {
		return err
	}

	if len(reason) > MaxReasonLength {
		return NewValidationError("reason", fmt.Sprintf("exceeds %d characters", MaxReasonLength))
	}

	// Hold and refund tags are idempotency keys owned by the order and withdrawal flows.
	if IsReservedReason(reason) {
		return NewValidationError("reason", "uses a reserved hold or refund tag")
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
