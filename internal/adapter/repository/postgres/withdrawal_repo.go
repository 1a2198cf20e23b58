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

var withdrawalColumns = []string{
	"id", "user_id", "destination_address", "network", "amount", "fee_amount",
	"status", "completed_at", "created_at", "updated_at",
}

// WithdrawalRepository implements usecase.WithdrawalRepository.
type WithdrawalRepository struct {
	db querier
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{db: pool}
}

// Create inserts a pending withdrawal.
func (r *WithdrawalRepository) Create(ctx context.Context, tx usecase.Transaction, w *domain.Withdrawal) error {
	_, err := exec(ctx, conn(r.db, tx), psql.Insert("withdrawals").
		Columns(withdrawalColumns...).
		Values(
			w.ID,
			w.UserID,
			w.DestinationAddress,
			w.Network,
			decimalToNumeric(w.Amount),
			decimalToNumeric(w.FeeAmount),
			string(w.Status),
			w.CompletedAt,
			w.CreatedAt,
			w.UpdatedAt,
		))

	return err
}

// GetByID retrieves a withdrawal by ID.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return r.get(ctx, r.db, psql.Select(withdrawalColumns...).From("withdrawals").Where(sq.Eq{"id": id}))
}

// GetByIDForUpdate retrieves a withdrawal and locks its row until tx ends.
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Withdrawal, error) {
	return r.get(ctx, conn(r.db, tx), psql.Select(withdrawalColumns...).From("withdrawals").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *WithdrawalRepository) get(ctx context.Context, q querier, b sq.SelectBuilder) (*domain.Withdrawal, error) {
	row, err := queryRow(ctx, q, b)
	if err != nil {
		return nil, err
	}

	w, err := scanWithdrawal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWithdrawalNotFound
	}

	return w, err
}

// UpdateStatus sets the terminal status of a pending withdrawal.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.WithdrawalStatus, completedAt time.Time) error {
	tag, err := exec(ctx, conn(r.db, tx), psql.Update("withdrawals").
		Set("status", string(status)).
		Set("completed_at", completedAt).
		Set("updated_at", completedAt).
		Where(sq.Eq{"id": id, "status": string(domain.WithdrawalStatusPending)}))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}

	return nil
}

// ListByUser lists the user's withdrawals, newest first.
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error) {
	rows, err := query(ctx, r.db, psql.
		Select(withdrawalColumns...).
		From("withdrawals").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	withdrawals := make([]*domain.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}

	return withdrawals, rows.Err()
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var (
		w           domain.Withdrawal
		status      string
		amount, fee pgtype.Numeric
		completedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.DestinationAddress,
		&w.Network,
		&amount,
		&fee,
		&status,
		&completedAt,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Status = domain.WithdrawalStatus(status)
	w.Amount = numericToDecimal(amount)
	w.FeeAmount = numericToDecimal(fee)
	w.CompletedAt = timestamptzPtr(completedAt)

	return &w, nil
}
