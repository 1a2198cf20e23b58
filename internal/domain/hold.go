package domain

import "strings"

// Reason tags double as idempotency keys: at most one entry per user may
// carry a given hold or refund tag.
const (
	reasonOrderHold        = "order_hold:"
	reasonOrderRefund      = "order_refund:"
	reasonWithdrawalHold   = "withdrawal_hold:"
	reasonWithdrawalRefund = "withdrawal_refund:"
)

// OrderHoldReason is the tag of the deduction placed when an order is created.
func OrderHoldReason(orderID string) string {
	return reasonOrderHold + orderID
}

// OrderRefundReason is the tag of the credit reversing a failed order's hold.
func OrderRefundReason(orderID string) string {
	return reasonOrderRefund + orderID
}

// WithdrawalHoldReason is the tag of the amount+fee deduction of a withdrawal.
func WithdrawalHoldReason(withdrawalID string) string {
	return reasonWithdrawalHold + withdrawalID
}

// WithdrawalRefundReason is the tag of the credit issued when a withdrawal is rejected.
func WithdrawalRefundReason(withdrawalID string) string {
	return reasonWithdrawalRefund + withdrawalID
}

// RefundReasonPrefixes are the tags of credits that reverse a hold.
var RefundReasonPrefixes = []string{reasonOrderRefund, reasonWithdrawalRefund}

// IsReservedReason reports whether reason carries a hold or refund tag.
func IsReservedReason(reason string) bool {
	for _, prefix := range []string{reasonOrderHold, reasonOrderRefund, reasonWithdrawalHold, reasonWithdrawalRefund} {
		if strings.HasPrefix(reason, prefix) {
			return true
		}
	}
	return false
}

// IsRefundReason reports whether reason tags a credit reversing a hold.
func IsRefundReason(reason string) bool {
	for _, prefix := range RefundReasonPrefixes {
		if strings.HasPrefix(reason, prefix) {
			return true
		}
	}
	return false
}
