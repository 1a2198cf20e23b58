package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/metrics"
)

// OrderUseCase implements the sell order state machine:
// pending -> confirmed | failed, exactly once.
type OrderUseCase struct {
	tx            txRunner
	entryRepo     EntryRepository
	orderRepo     OrderRepository
	outboxRepo    OutboxRepository
	aggregator    BalanceAggregator
	idGen         IDGenerator
	failurePolicy domain.OrderFailurePolicy
	metrics       *metrics.Metrics
}

// NewOrderUseCase creates a new OrderUseCase.
func NewOrderUseCase(
	txManager TransactionManager,
	retrier Retrier,
	entryRepo EntryRepository,
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	aggregator BalanceAggregator,
	idGen IDGenerator,
	failurePolicy domain.OrderFailurePolicy,
	metrics *metrics.Metrics,
) *OrderUseCase {
	if !failurePolicy.IsValid() {
		failurePolicy = domain.OrderFailureRetain
	}

	return &OrderUseCase{
		tx:            txRunner{txManager: txManager, retrier: retrier},
		entryRepo:     entryRepo,
		orderRepo:     orderRepo,
		outboxRepo:    outboxRepo,
		aggregator:    aggregator,
		idGen:         idGen,
		failurePolicy: failurePolicy,
		metrics:       metrics,
	}
}

// CreateOrderInput represents input for creating a sell order.
type CreateOrderInput struct {
	UserID          string
	BankDestination string
	Plan            string
	Amount          decimal.Decimal
	Rate            decimal.Decimal
	// InrEquivalent defaults to Amount*Rate rounded to paise.
	InrEquivalent *decimal.Decimal
}

func (in CreateOrderInput) validate() error {
	if err := domain.ValidateRequired("user_id", in.UserID); err != nil {
		return err
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return err
	}
	if err := domain.ValidateRequired("bank_destination", in.BankDestination); err != nil {
		return err
	}
	if err := domain.ValidateRequired("plan", in.Plan); err != nil {
		return err
	}
	if !in.Rate.IsPositive() {
		return domain.NewValidationError("rate", "must be positive")
	}
	if in.InrEquivalent != nil && !in.InrEquivalent.IsPositive() {
		return domain.NewValidationError("inr_equivalent", "must be positive")
	}
	return nil
}

// CreateOrder places a hold for the order amount and records the order in
// one transaction. A visible order always has its hold entry.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	inr := input.Amount.Mul(input.Rate).Round(2)
	if input.InrEquivalent != nil {
		inr = *input.InrEquivalent
	}

	var order *domain.Order
	err := uc.tx.run(ctx, "create order", func(ctx context.Context, tx Transaction) error {
		if err := uc.entryRepo.LockUser(ctx, tx, input.UserID); err != nil {
			return storeErr("lock user", err)
		}

		balance, err := uc.aggregator.ComputeAvailable(ctx, tx, input.UserID)
		if err != nil {
			return storeErr("compute balance", err)
		}

		if input.Amount.GreaterThan(balance.Available) {
			return &domain.InsufficientFundsError{
				Required:  input.Amount,
				Available: balance.Available,
				Fee:       decimal.Zero,
			}
		}

		now := time.Now().UTC()
		order = &domain.Order{
			ID:              uc.idGen.Generate(),
			UserID:          input.UserID,
			Amount:          input.Amount,
			InrEquivalent:   inr,
			BankDestination: input.BankDestination,
			Plan:            input.Plan,
			Rate:            input.Rate,
			Status:          domain.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := uc.orderRepo.Create(ctx, tx, order); err != nil {
			return storeErr("create order", err)
		}

		if err := uc.appendHold(ctx, tx, order, now); err != nil {
			return err
		}

		event := newOutboxEvent(uc.idGen, domain.AggregateTypeOrder, order.ID, domain.EventTypeOrderCreated, map[string]any{
			"order_id":       order.ID,
			"user_id":        order.UserID,
			"amount":         order.Amount.String(),
			"inr_equivalent": order.InrEquivalent.String(),
			"plan":           order.Plan,
		}, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return storeErr("create order event", err)
		}

		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			observeFailure(uc.metrics, "order", err)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.OrdersCreated.Inc()
		uc.metrics.OrderDuration.Observe(time.Since(start).Seconds())
	}

	return order, nil
}

// ResolveOrder performs the single terminal transition of a pending order.
func (uc *OrderUseCase) ResolveOrder(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if err := domain.ValidateRequired("order_id", orderID); err != nil {
		return nil, err
	}
	if !status.IsTerminal() {
		return nil, domain.NewValidationError("status", "must be confirmed or failed")
	}

	start := time.Now()

	var order *domain.Order
	err := uc.tx.run(ctx, "resolve order", func(ctx context.Context, tx Transaction) error {
		var err error
		order, err = uc.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if order.Status != domain.OrderStatusPending {
			return &domain.InvalidTransitionError{Entity: "order", ID: order.ID, Current: string(order.Status)}
		}

		if err := uc.entryRepo.LockUser(ctx, tx, order.UserID); err != nil {
			return storeErr("lock user", err)
		}

		now := time.Now().UTC()

		switch status {
		case domain.OrderStatusConfirmed:
			if err := uc.confirm(ctx, tx, order, now); err != nil {
				return err
			}
		case domain.OrderStatusFailed:
			if err := uc.fail(ctx, tx, order, now); err != nil {
				return err
			}
		}

		if err := uc.orderRepo.UpdateStatus(ctx, tx, order.ID, status, now); err != nil {
			return storeErr("update order status", err)
		}

		order.Status = status
		order.CompletedAt = &now
		order.UpdatedAt = now

		eventType := domain.EventTypeOrderConfirmed
		if status == domain.OrderStatusFailed {
			eventType = domain.EventTypeOrderFailed
		}

		event := newOutboxEvent(uc.idGen, domain.AggregateTypeOrder, order.ID, eventType, map[string]any{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"amount":   order.Amount.String(),
			"status":   string(status),
			"by":       domain.ActorFromContext(ctx),
		}, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return storeErr("create order event", err)
		}

		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			observeFailure(uc.metrics, "order_resolve", err)
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.OrdersResolved.WithLabelValues(string(status)).Inc()
		uc.metrics.OrderDuration.Observe(time.Since(start).Seconds())
	}

	return order, nil
}

// confirm turns the creation hold into the permanent deduction. The hold is
// appended only if it is missing, then the balance is re-validated so that
// admin deductions made after creation cannot leave the user overdrawn.
func (uc *OrderUseCase) confirm(ctx context.Context, tx Transaction, order *domain.Order, now time.Time) error {
	held, err := uc.entryRepo.ExistsByReason(ctx, tx, order.UserID, domain.OrderHoldReason(order.ID))
	if err != nil {
		return storeErr("check order hold", err)
	}

	if !held {
		if err := uc.appendHold(ctx, tx, order, now); err != nil {
			return err
		}
	}

	balance, err := uc.aggregator.ComputeAvailable(ctx, tx, order.UserID)
	if err != nil {
		return storeErr("compute balance", err)
	}

	if balance.Available.IsNegative() {
		return &domain.InsufficientFundsError{
			Required:  order.Amount,
			Available: balance.Available.Add(order.Amount),
			Fee:       decimal.Zero,
		}
	}

	return nil
}

// fail applies the configured failure policy to the creation hold.
func (uc *OrderUseCase) fail(ctx context.Context, tx Transaction, order *domain.Order, now time.Time) error {
	if uc.failurePolicy != domain.OrderFailureRefund {
		return nil
	}

	reason := domain.OrderRefundReason(order.ID)
	refunded, err := uc.entryRepo.ExistsByReason(ctx, tx, order.UserID, reason)
	if err != nil {
		return storeErr("check order refund", err)
	}
	if refunded {
		return nil
	}

	orderID := order.ID
	entry := &domain.Entry{
		ID:            uc.idGen.Generate(),
		UserID:        order.UserID,
		Amount:        order.Amount,
		Kind:          domain.EntryKindCredit,
		Reason:        reason,
		LinkedOrderID: &orderID,
		CreatedBy:     domain.ActorFromContext(ctx),
		CreatedAt:     now,
	}
	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return storeErr("append order refund", err)
	}

	return nil
}

func (uc *OrderUseCase) appendHold(ctx context.Context, tx Transaction, order *domain.Order, now time.Time) error {
	orderID := order.ID
	entry := &domain.Entry{
		ID:            uc.idGen.Generate(),
		UserID:        order.UserID,
		Amount:        order.Amount,
		Kind:          domain.EntryKindDeduct,
		Reason:        domain.OrderHoldReason(order.ID),
		LinkedOrderID: &orderID,
		CreatedBy:     order.UserID,
		CreatedAt:     now,
	}
	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return storeErr("append order hold", err)
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (uc *OrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return uc.orderRepo.GetByID(ctx, id)
}

// ListOrdersInput represents input for listing a user's orders.
type ListOrdersInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListOrders lists a user's orders, newest first.
func (uc *OrderUseCase) ListOrders(ctx context.Context, input ListOrdersInput) ([]*domain.Order, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.orderRepo.ListByUser(ctx, input.UserID, limit, offset)
}
