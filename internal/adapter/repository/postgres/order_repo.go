package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

var orderColumns = []string{
	"id", "user_id", "amount", "inr_equivalent", "bank_destination", "plan", "rate",
	"status", "completed_at", "created_at", "updated_at",
}

// OrderRepository implements usecase.OrderRepository.
type OrderRepository struct {
	db querier
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

// Create inserts a pending order.
func (r *OrderRepository) Create(ctx context.Context, tx usecase.Transaction, order *domain.Order) error {
	_, err := exec(ctx, conn(r.db, tx), psql.Insert("orders").
		Columns(orderColumns...).
		Values(
			order.ID,
			order.UserID,
			decimalToNumeric(order.Amount),
			decimalToNumeric(order.InrEquivalent),
			order.BankDestination,
			order.Plan,
			decimalToNumeric(order.Rate),
			string(order.Status),
			order.CompletedAt,
			order.CreatedAt,
			order.UpdatedAt,
		))

	return err
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, r.db, psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}))
}

// GetByIDForUpdate retrieves an order and locks its row until tx ends.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Order, error) {
	return r.get(ctx, conn(r.db, tx), psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *OrderRepository) get(ctx context.Context, q querier, b sq.SelectBuilder) (*domain.Order, error) {
	row, err := queryRow(ctx, q, b)
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}

	return order, err
}

// UpdateStatus sets the terminal status of a pending order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.OrderStatus, completedAt time.Time) error {
	tag, err := exec(ctx, conn(r.db, tx), psql.Update("orders").
		Set("status", string(status)).
		Set("completed_at", completedAt).
		Set("updated_at", completedAt).
		Where(sq.Eq{"id": id, "status": string(domain.OrderStatusPending)}))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}

	return nil
}

// ListByUser lists the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, error) {
	rows, err := query(ctx, r.db, psql.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order             domain.Order
		status            string
		amount, inr, rate pgtype.Numeric
		completedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&amount,
		&inr,
		&order.BankDestination,
		&order.Plan,
		&rate,
		&status,
		&completedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	order.Amount = numericToDecimal(amount)
	order.InrEquivalent = numericToDecimal(inr)
	order.Rate = numericToDecimal(rate)
	order.CompletedAt = timestamptzPtr(completedAt)

	return &order, nil
}
