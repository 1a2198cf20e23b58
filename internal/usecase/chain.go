package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
)

//go:generate mockgen -source=chain.go -destination=mocks/mock_chain.go -package=mocks

// ChainIndexer reads token transfer history of an address.
type ChainIndexer interface {
	ListInboundTransfers(ctx context.Context, address string) ([]domain.InboundTransfer, error)
}

// TransferSubmitter moves tokens out of a managed wallet.
type TransferSubmitter interface {
	SubmitTransfer(ctx context.Context, from *domain.Wallet, toAddress string, amount decimal.Decimal) (string, error)
}

// ReceiptFetcher looks up an executed transfer. A nil receipt with a nil
// error means the transfer is not confirmed yet.
type ReceiptFetcher interface {
	GetTransferReceipt(ctx context.Context, txID string) (*domain.Receipt, error)
}

// TickLock guards a sweep tick across processes.
type TickLock interface {
	// Acquire returns false when another holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
