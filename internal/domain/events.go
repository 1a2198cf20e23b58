package domain

import "time"

// Event types
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderConfirmed     = "order.confirmed"
	EventTypeOrderFailed        = "order.failed"
	EventTypeWithdrawalCreated  = "withdrawal.created"
	EventTypeWithdrawalApproved = "withdrawal.approved"
	EventTypeWithdrawalRejected = "withdrawal.rejected"
	EventTypeAdjustmentCreated  = "adjustment.created"
	EventTypeDepositForwarded   = "deposit.forwarded"
	EventTypeDepositFailed      = "deposit.failed"
)

// Aggregate types
const (
	AggregateTypeOrder      = "order"
	AggregateTypeWithdrawal = "withdrawal"
	AggregateTypeEntry      = "entry"
	AggregateTypeDeposit    = "deposit"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
