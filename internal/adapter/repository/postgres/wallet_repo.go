package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/balanceledger/internal/domain"
)

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	db querier
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: pool}
}

// List returns every managed deposit wallet.
func (r *WalletRepository) List(ctx context.Context) ([]*domain.Wallet, error) {
	rows, err := query(ctx, r.db, psql.
		Select("id", "user_id", "address", "created_at").
		From("wallets").
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := make([]*domain.Wallet, 0)
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.CreatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}
