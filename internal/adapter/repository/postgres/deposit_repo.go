package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

var depositColumns = []string{
	"id", "user_id", "source_address", "source_tx_id", "amount", "forward_tx_id",
	"status", "failure_reason", "created_at", "updated_at",
}

// DepositRepository implements usecase.DepositRepository.
type DepositRepository struct {
	db querier
}

// NewDepositRepository creates a new DepositRepository.
func NewDepositRepository(pool *pgxpool.Pool) *DepositRepository {
	return &DepositRepository{db: pool}
}

// Create records a newly observed transfer. The unique source_tx_id
// constraint turns a replay into domain.ErrDuplicateDeposit.
func (r *DepositRepository) Create(ctx context.Context, tx usecase.Transaction, d *domain.Deposit) error {
	_, err := exec(ctx, conn(r.db, tx), psql.Insert("deposits").
		Columns(depositColumns...).
		Values(
			d.ID,
			d.UserID,
			d.SourceAddress,
			d.SourceTxID,
			decimalToNumeric(d.Amount),
			nullableText(d.ForwardTxID),
			string(d.Status),
			d.FailureReason,
			d.CreatedAt,
			d.UpdatedAt,
		))
	if isUniqueViolation(err) {
		return domain.ErrDuplicateDeposit
	}

	return err
}

// ExistsBySourceTxID reports whether the chain transaction was already recorded.
func (r *DepositRepository) ExistsBySourceTxID(ctx context.Context, sourceTxID string) (bool, error) {
	row, err := queryRow(ctx, r.db, psql.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("deposits").
		Where(sq.Eq{"source_tx_id": sourceTxID}).
		Suffix(")"))
	if err != nil {
		return false, err
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// SetForwardTxID records the submitted forwarding transaction on a pending deposit.
func (r *DepositRepository) SetForwardTxID(ctx context.Context, tx usecase.Transaction, id, forwardTxID string, updatedAt time.Time) error {
	return r.mark(ctx, tx, id, psql.Update("deposits").
		Set("forward_tx_id", forwardTxID).
		Set("updated_at", updatedAt))
}

// MarkForwarded moves a pending deposit to forwarded.
func (r *DepositRepository) MarkForwarded(ctx context.Context, tx usecase.Transaction, id, forwardTxID string, updatedAt time.Time) error {
	return r.mark(ctx, tx, id, psql.Update("deposits").
		Set("status", string(domain.DepositStatusForwarded)).
		Set("forward_tx_id", forwardTxID).
		Set("updated_at", updatedAt))
}

// MarkFailed moves a pending deposit to failed.
func (r *DepositRepository) MarkFailed(ctx context.Context, tx usecase.Transaction, id, reason string, forwardTxID *string, updatedAt time.Time) error {
	return r.mark(ctx, tx, id, psql.Update("deposits").
		Set("status", string(domain.DepositStatusFailed)).
		Set("forward_tx_id", nullableText(forwardTxID)).
		Set("failure_reason", reason).
		Set("updated_at", updatedAt))
}

func (r *DepositRepository) mark(ctx context.Context, tx usecase.Transaction, id string, b sq.UpdateBuilder) error {
	tag, err := exec(ctx, conn(r.db, tx), b.Where(sq.Eq{"id": id, "status": string(domain.DepositStatusPending)}))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}

	return nil
}

// SumForwardedByUser totals the user's forwarded deposits.
func (r *DepositRepository) SumForwardedByUser(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, error) {
	row, err := queryRow(ctx, conn(r.db, tx), psql.
		Select("COALESCE(SUM(amount), 0)").
		From("deposits").
		Where(sq.Eq{"user_id": userID, "status": string(domain.DepositStatusForwarded)}))
	if err != nil {
		return decimal.Zero, err
	}

	var sum pgtype.Numeric
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// ListByUser lists the user's deposits, newest first.
func (r *DepositRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Deposit, error) {
	rows, err := query(ctx, r.db, psql.
		Select(depositColumns...).
		From("deposits").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deposits := make([]*domain.Deposit, 0)
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}

	return deposits, rows.Err()
}

// ListStalePending lists pending deposits not touched since before, oldest first.
func (r *DepositRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Deposit, error) {
	rows, err := query(ctx, r.db, psql.
		Select(depositColumns...).
		From("deposits").
		Where(sq.Eq{"status": string(domain.DepositStatusPending)}).
		Where(sq.Lt{"updated_at": before}).
		OrderBy("updated_at ASC", "id ASC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deposits := make([]*domain.Deposit, 0)
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}

	return deposits, rows.Err()
}

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	var (
		d         domain.Deposit
		status    string
		amount    pgtype.Numeric
		forwardTx pgtype.Text
	)

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.SourceAddress,
		&d.SourceTxID,
		&amount,
		&forwardTx,
		&status,
		&d.FailureReason,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = domain.DepositStatus(status)
	d.Amount = numericToDecimal(amount)
	d.ForwardTxID = textPtr(forwardTx)

	return &d, nil
}
