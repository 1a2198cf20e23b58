package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

var entryColumns = []string{
	"id", "user_id", "amount", "kind", "reason",
	"linked_order_id", "linked_withdrawal_id", "created_by", "created_at",
}

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db querier
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{db: pool}
}

// Create appends an entry. Entries are never updated afterwards.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	_, err := exec(ctx, conn(r.db, tx), psql.Insert("entries").
		Columns(entryColumns...).
		Values(
			entry.ID,
			entry.UserID,
			decimalToNumeric(entry.Amount),
			string(entry.Kind),
			entry.Reason,
			nullableText(entry.LinkedOrderID),
			nullableText(entry.LinkedWithdrawalID),
			entry.CreatedBy,
			entry.CreatedAt,
		))

	return err
}

// LockUser takes a transaction-scoped advisory lock keyed by the user id.
func (r *EntryRepository) LockUser(ctx context.Context, tx usecase.Transaction, userID string) error {
	_, err := conn(r.db, tx).Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", userID)
	return err
}

// ExistsByReason reports whether the user already has an entry tagged reason.
func (r *EntryRepository) ExistsByReason(ctx context.Context, tx usecase.Transaction, userID, reason string) (bool, error) {
	row, err := queryRow(ctx, conn(r.db, tx), psql.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("entries").
		Where(sq.Eq{"user_id": userID, "reason": reason}).
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

// SumByKind returns the totals of the user's credit and deduct entries.
func (r *EntryRepository) SumByKind(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, decimal.Decimal, error) {
	row, err := queryRow(ctx, conn(r.db, tx), psql.
		Select(
			"COALESCE(SUM(amount) FILTER (WHERE kind = 'credit'), 0)",
			"COALESCE(SUM(amount) FILTER (WHERE kind = 'deduct'), 0)",
		).
		From("entries").
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	var credits, deducts pgtype.Numeric
	if err := row.Scan(&credits, &deducts); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(credits), numericToDecimal(deducts), nil
}

// SumReversals totals the user's credits tagged as order or withdrawal refunds.
func (r *EntryRepository) SumReversals(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, error) {
	refunds := sq.Or{}
	for _, prefix := range domain.RefundReasonPrefixes {
		refunds = append(refunds, sq.Like{"reason": prefix + "%"})
	}

	row, err := queryRow(ctx, conn(r.db, tx), psql.
		Select("COALESCE(SUM(amount), 0)").
		From("entries").
		Where(sq.Eq{"user_id": userID, "kind": string(domain.EntryKindCredit)}).
		Where(refunds))
	if err != nil {
		return decimal.Zero, err
	}

	var total pgtype.Numeric
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(total), nil
}

// ListByUser lists the user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := query(ctx, r.db, psql.
		Select(entryColumns...).
		From("entries").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry                       domain.Entry
		kind                        string
		amount                      pgtype.Numeric
		linkedOrder, linkedWithdraw pgtype.Text
	)

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&amount,
		&kind,
		&entry.Reason,
		&linkedOrder,
		&linkedWithdraw,
		&entry.CreatedBy,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Kind = domain.EntryKind(kind)
	entry.Amount = numericToDecimal(amount)
	entry.LinkedOrderID = textPtr(linkedOrder)
	entry.LinkedWithdrawalID = textPtr(linkedWithdraw)

	return &entry, nil
}
