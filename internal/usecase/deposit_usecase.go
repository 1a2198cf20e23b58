package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/metrics"
)

var (
	// ErrTickInProgress is returned when a sweep tick is already running.
	ErrTickInProgress = errors.New("deposit sweep already in progress")
	// ErrSweepDisabled is returned when the ledger runs in manual accounting mode.
	ErrSweepDisabled = errors.New("deposit sweep disabled in manual accounting mode")
)

// SweepConfig configures the deposit reconciliation worker.
type SweepConfig struct {
	TokenContract         string
	MasterAddress         string
	Concurrency           int
	ConfirmAttempts       int
	ConfirmDelay          time.Duration
	RequireReceiptSuccess bool
	LockTTL               time.Duration
	// StaleAfter is how long a deposit may stay pending before a tick finalizes it.
	StaleAfter time.Duration
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.ConfirmAttempts <= 0 {
		c.ConfirmAttempts = 10
	}
	if c.ConfirmDelay < 0 {
		c.ConfirmDelay = 0
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Minute
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 15 * time.Minute
	}
	return c
}

// TickReport summarizes one sweep tick.
type TickReport struct {
	Wallets   int
	Forwarded int
	Failed    int
	Idle      int
	Recovered int
	Errors    int
}

const staleBatchSize = 100

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DepositReconciliationUseCase converts inbound chain transfers into
// forwarded deposit records exactly once per source transaction.
type DepositReconciliationUseCase struct {
	tx          txRunner
	mode        domain.AccountingMode
	walletRepo  WalletRepository
	depositRepo DepositRepository
	outboxRepo  OutboxRepository
	indexer     ChainIndexer
	submitter   TransferSubmitter
	receipts    ReceiptFetcher
	tickLock    TickLock
	idGen       IDGenerator
	cfg         SweepConfig
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	sleep       SleepFunc
	now         func() time.Time

	running sync.Mutex
}

// DepositReconciliationDeps groups the collaborators of the worker.
type DepositReconciliationDeps struct {
	TxManager   TransactionManager
	Retrier     Retrier
	WalletRepo  WalletRepository
	DepositRepo DepositRepository
	OutboxRepo  OutboxRepository
	Indexer     ChainIndexer
	Submitter   TransferSubmitter
	Receipts    ReceiptFetcher
	// TickLock is optional; without it ticks are single-flight per process only.
	TickLock TickLock
	IDGen    IDGenerator
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewDepositReconciliationUseCase creates a new DepositReconciliationUseCase.
func NewDepositReconciliationUseCase(mode domain.AccountingMode, deps DepositReconciliationDeps, cfg SweepConfig) *DepositReconciliationUseCase {
	return &DepositReconciliationUseCase{
		tx:          txRunner{txManager: deps.TxManager, retrier: deps.Retrier},
		mode:        mode,
		walletRepo:  deps.WalletRepo,
		depositRepo: deps.DepositRepo,
		outboxRepo:  deps.OutboxRepo,
		indexer:     deps.Indexer,
		submitter:   deps.Submitter,
		receipts:    deps.Receipts,
		tickLock:    deps.TickLock,
		idGen:       deps.IDGen,
		cfg:         cfg.withDefaults(),
		logger:      deps.Logger.With().Str("component", "deposit_sweep").Logger(),
		metrics:     deps.Metrics,
		sleep:       sleepContext,
		now:         time.Now,
	}
}

// WithSleep replaces the wait between receipt polls.
func (uc *DepositReconciliationUseCase) WithSleep(sleep SleepFunc) *DepositReconciliationUseCase {
	uc.sleep = sleep
	return uc
}

// WithClock replaces the clock used to stamp and age deposit records.
func (uc *DepositReconciliationUseCase) WithClock(now func() time.Time) *DepositReconciliationUseCase {
	uc.now = now
	return uc
}

// Enabled reports whether the sweep runs in the configured accounting mode.
func (uc *DepositReconciliationUseCase) Enabled() bool {
	return uc.mode == domain.AccountingForwarding
}

// RunTick processes every managed wallet once. A failing wallet is counted
// and logged but never aborts the tick.
func (uc *DepositReconciliationUseCase) RunTick(ctx context.Context) (*TickReport, error) {
	if !uc.Enabled() {
		return nil, ErrSweepDisabled
	}

	if !uc.running.TryLock() {
		return nil, ErrTickInProgress
	}
	defer uc.running.Unlock()

	if uc.tickLock != nil {
		acquired, err := uc.tickLock.Acquire(ctx, SweepLockKey, uc.cfg.LockTTL)
		if err != nil {
			uc.recordRedisError("lock_acquire")
			return nil, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !acquired {
			return nil, ErrTickInProgress
		}
		defer func() {
			if err := uc.tickLock.Release(context.WithoutCancel(ctx), SweepLockKey); err != nil {
				uc.recordRedisError("lock_release")
				uc.logger.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	start := time.Now()

	wallets, err := uc.walletRepo.List(ctx)
	if err != nil {
		return nil, storeErr("list wallets", err)
	}

	report := &TickReport{Wallets: len(wallets)}
	uc.recoverStale(ctx, report)

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Concurrency)

	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			deposit, err := uc.ReconcileWallet(gctx, wallet)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				report.Errors++
				if uc.metrics != nil {
					uc.metrics.SweepWalletErrors.Inc()
				}
				uc.logger.Error().Err(err).
					Str("wallet_id", wallet.ID).
					Str("address", wallet.Address).
					Msg("wallet reconciliation failed")
			case deposit == nil:
				report.Idle++
			case deposit.Status == domain.DepositStatusForwarded:
				report.Forwarded++
			default:
				report.Failed++
			}

			return nil
		})
	}

	_ = g.Wait()

	if uc.metrics != nil {
		uc.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}

	uc.logger.Info().
		Int("wallets", report.Wallets).
		Int("forwarded", report.Forwarded).
		Int("failed", report.Failed).
		Int("idle", report.Idle).
		Int("recovered", report.Recovered).
		Int("errors", report.Errors).
		Dur("duration", time.Since(start)).
		Msg("deposit sweep tick completed")

	return report, nil
}

func (uc *DepositReconciliationUseCase) recordRedisError(op string) {
	if uc.metrics != nil {
		uc.metrics.RedisErrors.WithLabelValues(op).Inc()
	}
}

// ReconcileWallet handles the most recent unseen inbound transfer of a
// wallet. It returns a nil deposit when there is nothing new. Submission and
// confirmation failures are recorded on the deposit, not returned.
func (uc *DepositReconciliationUseCase) ReconcileWallet(ctx context.Context, wallet *domain.Wallet) (*domain.Deposit, error) {
	transfers, err := uc.indexer.ListInboundTransfers(ctx, wallet.Address)
	if err != nil {
		return nil, &domain.ChainError{Op: "list inbound transfers", Err: err}
	}

	transfer, err := uc.latestUnseen(ctx, wallet, transfers)
	if err != nil || transfer == nil {
		return nil, err
	}

	now := uc.now().UTC()
	deposit := &domain.Deposit{
		ID:            uc.idGen.Generate(),
		UserID:        wallet.UserID,
		SourceAddress: transfer.From,
		SourceTxID:    transfer.SourceTxID,
		Amount:        transfer.Amount,
		Status:        domain.DepositStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = uc.tx.run(ctx, "create deposit", func(ctx context.Context, tx Transaction) error {
		if err := uc.depositRepo.Create(ctx, tx, deposit); err != nil {
			if errors.Is(err, domain.ErrDuplicateDeposit) {
				return err
			}
			return storeErr("create deposit", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateDeposit) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log := uc.logger.With().
		Str("deposit_id", deposit.ID).
		Str("source_tx_id", deposit.SourceTxID).
		Str("amount", deposit.Amount.String()).
		Logger()

	// Terminal writes must land even if the tick is cancelled mid-poll.
	writeCtx := context.WithoutCancel(ctx)

	forwardTxID, err := uc.submitter.SubmitTransfer(ctx, wallet, uc.cfg.MasterAddress, deposit.Amount)
	if err != nil {
		chainErr := &domain.ChainError{Op: "submit transfer", Err: err}
		log.Warn().Err(chainErr).Msg("forwarding submission failed")
		return deposit, uc.fail(writeCtx, deposit, chainErr.Error(), nil)
	}

	// A pending record carrying the forward tx id is finalized by a later
	// tick if this one never reaches its terminal write.
	if err := uc.recordForwardTx(writeCtx, deposit, forwardTxID); err != nil {
		log.Warn().Err(err).Str("forward_tx_id", forwardTxID).Msg("failed to record forwarding tx id")
	}

	receipt, attempts := uc.awaitReceipt(ctx, forwardTxID)
	if uc.metrics != nil {
		uc.metrics.ConfirmAttempts.Observe(float64(attempts))
	}

	unconfirmed := fmt.Sprintf("not confirmed after %d attempts", attempts)
	return deposit, uc.settle(writeCtx, log, deposit, forwardTxID, receipt, unconfirmed)
}

// settle moves a submitted deposit to its terminal status given the receipt
// of its forwarding transfer. A nil receipt fails it with reason unconfirmed.
func (uc *DepositReconciliationUseCase) settle(ctx context.Context, log zerolog.Logger, deposit *domain.Deposit, forwardTxID string, receipt *domain.Receipt, unconfirmed string) error {
	switch {
	case receipt == nil:
		log.Warn().Str("forward_tx_id", forwardTxID).Msg("forwarding transfer not confirmed")
		return uc.fail(ctx, deposit, unconfirmed, &forwardTxID)
	case uc.cfg.RequireReceiptSuccess && !receipt.Success:
		log.Warn().Str("forward_tx_id", forwardTxID).Msg("forwarding transfer reverted")
		return uc.fail(ctx, deposit, "forwarding transfer reverted", &forwardTxID)
	}

	if err := uc.forward(ctx, deposit, forwardTxID); err != nil {
		return err
	}

	log.Info().Str("forward_tx_id", forwardTxID).Msg("deposit forwarded")

	return nil
}

func (uc *DepositReconciliationUseCase) recordForwardTx(ctx context.Context, deposit *domain.Deposit, forwardTxID string) error {
	now := uc.now().UTC()

	err := uc.tx.run(ctx, "record forward tx", func(ctx context.Context, tx Transaction) error {
		if err := uc.depositRepo.SetForwardTxID(ctx, tx, deposit.ID, forwardTxID, now); err != nil {
			return storeErr("record forward tx", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	deposit.ForwardTxID = &forwardTxID
	deposit.UpdatedAt = now

	return nil
}

// recoverStale finalizes deposits a previous tick left pending, either
// because it stopped mid-poll or because its terminal write failed.
func (uc *DepositReconciliationUseCase) recoverStale(ctx context.Context, report *TickReport) {
	stale, err := uc.depositRepo.ListStalePending(ctx, uc.now().Add(-uc.cfg.StaleAfter), staleBatchSize)
	if err != nil {
		report.Errors++
		uc.logger.Error().Err(storeErr("list stale deposits", err)).Msg("stale deposit recovery failed")
		return
	}

	for _, deposit := range stale {
		if err := uc.recoverDeposit(ctx, deposit); err != nil {
			report.Errors++
			uc.logger.Error().Err(err).Str("deposit_id", deposit.ID).Msg("stale deposit recovery failed")
			continue
		}
		report.Recovered++
	}
}

func (uc *DepositReconciliationUseCase) recoverDeposit(ctx context.Context, deposit *domain.Deposit) error {
	log := uc.logger.With().
		Str("deposit_id", deposit.ID).
		Str("source_tx_id", deposit.SourceTxID).
		Bool("recovered", true).
		Logger()
	writeCtx := context.WithoutCancel(ctx)

	if deposit.ForwardTxID == nil {
		log.Warn().Msg("forwarding interrupted before its transfer was recorded")
		return uc.fail(writeCtx, deposit, "forwarding interrupted before its transfer was recorded", nil)
	}

	forwardTxID := *deposit.ForwardTxID
	receipt, err := uc.receipts.GetTransferReceipt(ctx, forwardTxID)
	if err != nil {
		return &domain.ChainError{Op: "get transfer receipt", Err: err}
	}

	return uc.settle(writeCtx, log, deposit, forwardTxID, receipt, "not confirmed before the deposit went stale")
}

func (uc *DepositReconciliationUseCase) latestUnseen(ctx context.Context, wallet *domain.Wallet, transfers []domain.InboundTransfer) (*domain.InboundTransfer, error) {
	candidates := make([]domain.InboundTransfer, 0, len(transfers))
	for _, t := range transfers {
		if !strings.EqualFold(t.To, wallet.Address) {
			continue
		}
		if uc.cfg.TokenContract != "" && !strings.EqualFold(t.TokenContract, uc.cfg.TokenContract) {
			continue
		}
		if t.SourceTxID == "" || !t.Amount.IsPositive() {
			continue
		}
		candidates = append(candidates, t)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})

	for i := range candidates {
		seen, err := uc.depositRepo.ExistsBySourceTxID(ctx, candidates[i].SourceTxID)
		if err != nil {
			return nil, storeErr("check deposit", err)
		}
		if !seen {
			return &candidates[i], nil
		}
	}

	return nil, nil
}

// awaitReceipt polls for the forwarding receipt, waiting before each attempt.
// Lookup errors count as an unconfirmed attempt.
func (uc *DepositReconciliationUseCase) awaitReceipt(ctx context.Context, forwardTxID string) (*domain.Receipt, int) {
	attempts := 0
	for attempts < uc.cfg.ConfirmAttempts {
		if err := uc.sleep(ctx, uc.cfg.ConfirmDelay); err != nil {
			return nil, attempts
		}
		attempts++

		receipt, err := uc.receipts.GetTransferReceipt(ctx, forwardTxID)
		if err != nil {
			uc.logger.Debug().Err(err).Str("forward_tx_id", forwardTxID).Int("attempt", attempts).Msg("receipt lookup failed")
			continue
		}
		if receipt != nil {
			return receipt, attempts
		}
	}

	return nil, attempts
}

func (uc *DepositReconciliationUseCase) forward(ctx context.Context, deposit *domain.Deposit, forwardTxID string) error {
	now := uc.now().UTC()

	err := uc.tx.run(ctx, "forward deposit", func(ctx context.Context, tx Transaction) error {
		if err := uc.depositRepo.MarkForwarded(ctx, tx, deposit.ID, forwardTxID, now); err != nil {
			return storeErr("mark deposit forwarded", err)
		}
		return uc.outboxRepo.Create(ctx, tx, uc.depositEvent(deposit, domain.EventTypeDepositForwarded, forwardTxID, "", now))
	})
	if err != nil {
		return err
	}

	deposit.Status = domain.DepositStatusForwarded
	deposit.ForwardTxID = &forwardTxID
	deposit.UpdatedAt = now

	if uc.metrics != nil {
		uc.metrics.DepositsProcessed.WithLabelValues(string(domain.DepositStatusForwarded)).Inc()
	}

	return nil
}

func (uc *DepositReconciliationUseCase) fail(ctx context.Context, deposit *domain.Deposit, reason string, forwardTxID *string) error {
	now := uc.now().UTC()

	txID := ""
	if forwardTxID != nil {
		txID = *forwardTxID
	}

	err := uc.tx.run(ctx, "fail deposit", func(ctx context.Context, tx Transaction) error {
		if err := uc.depositRepo.MarkFailed(ctx, tx, deposit.ID, reason, forwardTxID, now); err != nil {
			return storeErr("mark deposit failed", err)
		}
		return uc.outboxRepo.Create(ctx, tx, uc.depositEvent(deposit, domain.EventTypeDepositFailed, txID, reason, now))
	})
	if err != nil {
		return err
	}

	deposit.Status = domain.DepositStatusFailed
	deposit.ForwardTxID = forwardTxID
	deposit.FailureReason = reason
	deposit.UpdatedAt = now

	if uc.metrics != nil {
		uc.metrics.DepositsProcessed.WithLabelValues(string(domain.DepositStatusFailed)).Inc()
	}

	return nil
}

func (uc *DepositReconciliationUseCase) depositEvent(deposit *domain.Deposit, eventType, forwardTxID, reason string, now time.Time) *domain.OutboxEvent {
	payload := map[string]any{
		"deposit_id":   deposit.ID,
		"user_id":      deposit.UserID,
		"amount":       deposit.Amount.String(),
		"source_tx_id": deposit.SourceTxID,
	}
	if forwardTxID != "" {
		payload["forward_tx_id"] = forwardTxID
	}
	if reason != "" {
		payload["reason"] = reason
	}
	return newOutboxEvent(uc.idGen, domain.AggregateTypeDeposit, deposit.ID, eventType, payload, now)
}

// ListDepositsInput represents input for listing a user's deposits.
type ListDepositsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListDeposits lists a user's deposit records, newest first.
func (uc *DepositReconciliationUseCase) ListDeposits(ctx context.Context, input ListDepositsInput) ([]*domain.Deposit, error) {
	if err := domain.ValidateRequired("user_id", input.UserID); err != nil {
		return nil, err
	}
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.depositRepo.ListByUser(ctx, input.UserID, limit, offset)
}
