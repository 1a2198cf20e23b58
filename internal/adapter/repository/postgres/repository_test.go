package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
)

func TestEntryRepository_CreateInTransaction(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &EntryRepository{db: pool}

	orderID := "order-1"
	entry := &domain.Entry{
		ID:            "entry-1",
		UserID:        "user-1",
		Amount:        decimal.NewFromInt(40),
		Kind:          domain.EntryKindDeduct,
		Reason:        domain.OrderHoldReason(orderID),
		LinkedOrderID: &orderID,
		CreatedBy:     "user-1",
		CreatedAt:     time.Now(),
	}

	pool.ExpectExec("INSERT INTO entries").
		WithArgs("entry-1", "user-1", pgxmock.AnyArg(), "deduct", "order_hold:order-1",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "user-1", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), tx, entry); err != nil {
		t.Fatalf("Create: %v", err)
	}

	assertExpectations(t, pool)
}

func TestEntryRepository_LockUser(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &EntryRepository{db: pool}

	pool.ExpectExec("pg_advisory_xact_lock").
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	if err := repo.LockUser(context.Background(), tx, "user-1"); err != nil {
		t.Fatalf("LockUser: %v", err)
	}

	assertExpectations(t, pool)
}

func TestEntryRepository_ExistsByReason(t *testing.T) {
	pool := newMockPool(t)
	repo := &EntryRepository{db: pool}

	pool.ExpectQuery("SELECT EXISTS").
		WithArgs("withdrawal_refund:w-1", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByReason(context.Background(), nil, "user-1", "withdrawal_refund:w-1")
	if err != nil {
		t.Fatalf("ExistsByReason: %v", err)
	}
	if !exists {
		t.Fatal("expected entry to exist")
	}

	assertExpectations(t, pool)
}

func TestEntryRepository_SumByKind(t *testing.T) {
	pool := newMockPool(t)
	repo := &EntryRepository{db: pool}

	pool.ExpectQuery("FROM entries").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"credits", "deducts"}).AddRow("150.25", "40"))

	credits, deducts, err := repo.SumByKind(context.Background(), nil, "user-1")
	if err != nil {
		t.Fatalf("SumByKind: %v", err)
	}
	if !credits.Equal(decimal.RequireFromString("150.25")) {
		t.Errorf("credits = %s, want 150.25", credits)
	}
	if !deducts.Equal(decimal.NewFromInt(40)) {
		t.Errorf("deducts = %s, want 40", deducts)
	}

	assertExpectations(t, pool)
}

func TestEntryRepository_SumReversals(t *testing.T) {
	pool := newMockPool(t)
	repo := &EntryRepository{db: pool}

	pool.ExpectQuery("FROM entries WHERE kind = \\$1 AND user_id = \\$2 AND \\(reason LIKE \\$3 OR reason LIKE \\$4\\)").
		WithArgs("credit", "user-1", "order_refund:%", "withdrawal_refund:%").
		WillReturnRows(pgxmock.NewRows([]string{"total"}).AddRow("37"))

	total, err := repo.SumReversals(context.Background(), nil, "user-1")
	if err != nil {
		t.Fatalf("SumReversals: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(37)) {
		t.Errorf("total = %s, want 37", total)
	}

	assertExpectations(t, pool)
}

func TestEntryRepository_ListByUser(t *testing.T) {
	pool := newMockPool(t)
	repo := &EntryRepository{db: pool}
	now := time.Now()

	pool.ExpectQuery("FROM entries").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(entryColumns).
			AddRow("e-2", "user-1", "40", "deduct", "order_hold:o-1", "o-1", nil, "user-1", now).
			AddRow("e-1", "user-1", "100", "credit", "top-up", nil, nil, "admin-1", now.Add(-time.Hour)))

	entries, err := repo.ListByUser(context.Background(), "user-1", 50, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Kind != domain.EntryKindDeduct || entries[0].LinkedOrderID == nil || *entries[0].LinkedOrderID != "o-1" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	if entries[1].LinkedOrderID != nil || !entries[1].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected second entry %+v", entries[1])
	}

	assertExpectations(t, pool)
}

func TestOrderRepository_GetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := &OrderRepository{db: pool}

	pool.ExpectQuery("FROM orders").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_GetByIDForUpdate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &OrderRepository{db: pool}
	now := time.Now()

	pool.ExpectQuery("FROM orders WHERE id = \\$1 FOR UPDATE").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow("order-1", "user-1", "40", "3530", "HDFC/1", "instant", "88.25", "pending", nil, now, now))

	order, err := repo.GetByIDForUpdate(context.Background(), tx, "order-1")
	if err != nil {
		t.Fatalf("GetByIDForUpdate: %v", err)
	}
	if order.Status != domain.OrderStatusPending || order.CompletedAt != nil {
		t.Errorf("unexpected order %+v", order)
	}
	if !order.Rate.Equal(decimal.RequireFromString("88.25")) {
		t.Errorf("rate = %s, want 88.25", order.Rate)
	}

	assertExpectations(t, pool)
}

func TestOrderRepository_UpdateStatusOnlyFromPending(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &OrderRepository{db: pool}
	now := time.Now()

	pool.ExpectExec("UPDATE orders").
		WithArgs("confirmed", now, now, "order-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), tx, "order-1", domain.OrderStatusConfirmed, now)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestWithdrawalRepository_GetByID(t *testing.T) {
	pool := newMockPool(t)
	repo := &WithdrawalRepository{db: pool}
	now := time.Now()

	pool.ExpectQuery("FROM withdrawals").
		WithArgs("w-1").
		WillReturnRows(pgxmock.NewRows(withdrawalColumns).
			AddRow("w-1", "user-1", "TQn9Y2", "TRC20", "30", "7", "rejected", now, now, now))

	w, err := repo.GetByID(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !w.Total().Equal(decimal.NewFromInt(37)) {
		t.Errorf("total = %s, want 37", w.Total())
	}
	if w.CompletedAt == nil || !w.CompletedAt.Equal(now) {
		t.Errorf("completed at = %v, want %v", w.CompletedAt, now)
	}

	pool.ExpectQuery("FROM withdrawals").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrWithdrawalNotFound) {
		t.Fatalf("expected ErrWithdrawalNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestDepositRepository_CreateDuplicate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &DepositRepository{db: pool}
	now := time.Now()

	pool.ExpectExec("INSERT INTO deposits").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "deposits_source_tx_id_key"})

	err := repo.Create(context.Background(), tx, &domain.Deposit{
		ID:         "dep-1",
		UserID:     "user-1",
		SourceTxID: "tx-1",
		Amount:     decimal.NewFromInt(10),
		Status:     domain.DepositStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if !errors.Is(err, domain.ErrDuplicateDeposit) {
		t.Fatalf("expected ErrDuplicateDeposit, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestDepositRepository_MarkForwarded(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &DepositRepository{db: pool}
	now := time.Now()

	pool.ExpectExec("UPDATE deposits").
		WithArgs("forwarded", "fwd-1", now, "dep-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkForwarded(context.Background(), tx, "dep-1", "fwd-1", now); err != nil {
		t.Fatalf("MarkForwarded: %v", err)
	}

	assertExpectations(t, pool)
}

func TestDepositRepository_SetForwardTxID(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := &DepositRepository{db: pool}
	now := time.Now()

	pool.ExpectExec("UPDATE deposits SET forward_tx_id = \\$1, updated_at = \\$2").
		WithArgs("fwd-1", now, "dep-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetForwardTxID(context.Background(), tx, "dep-1", "fwd-1", now)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for a settled deposit, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestDepositRepository_ListStalePending(t *testing.T) {
	pool := newMockPool(t)
	repo := &DepositRepository{db: pool}
	before := time.Now().Add(-15 * time.Minute)
	old := before.Add(-time.Hour)

	pool.ExpectQuery("FROM deposits WHERE status = \\$1 AND updated_at < \\$2 ORDER BY updated_at ASC").
		WithArgs("pending", before).
		WillReturnRows(pgxmock.NewRows(depositColumns).
			AddRow("dep-1", "user-1", "TSender", "tx-1", "25", "fwd-1", "pending", "", old, old).
			AddRow("dep-2", "user-2", "TSender", "tx-2", "10", nil, "pending", "", old, old))

	deposits, err := repo.ListStalePending(context.Background(), before, 100)
	if err != nil {
		t.Fatalf("ListStalePending: %v", err)
	}
	if len(deposits) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(deposits))
	}
	if deposits[0].ForwardTxID == nil || *deposits[0].ForwardTxID != "fwd-1" {
		t.Errorf("first deposit forward tx = %v, want fwd-1", deposits[0].ForwardTxID)
	}
	if deposits[1].ForwardTxID != nil {
		t.Errorf("second deposit forward tx = %v, want nil", *deposits[1].ForwardTxID)
	}

	assertExpectations(t, pool)
}

func TestDepositRepository_SumForwardedByUser(t *testing.T) {
	pool := newMockPool(t)
	repo := &DepositRepository{db: pool}

	pool.ExpectQuery("FROM deposits").
		WithArgs("forwarded", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("65.5"))

	sum, err := repo.SumForwardedByUser(context.Background(), nil, "user-1")
	if err != nil {
		t.Fatalf("SumForwardedByUser: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("65.5")) {
		t.Errorf("sum = %s, want 65.5", sum)
	}

	assertExpectations(t, pool)
}

func TestWalletRepository_List(t *testing.T) {
	pool := newMockPool(t)
	repo := &WalletRepository{db: pool}
	now := time.Now()

	pool.ExpectQuery("FROM wallets").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "address", "created_at"}).
			AddRow("w-1", "user-1", "TAddr1", now).
			AddRow("w-2", "user-2", "TAddr2", now))

	wallets, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(wallets) != 2 || wallets[1].Address != "TAddr2" {
		t.Fatalf("unexpected wallets %+v", wallets)
	}

	assertExpectations(t, pool)
}

func TestOutboxRepository_GetUnpublished(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}
	now := time.Now()

	pool.ExpectQuery("FROM outbox_events").
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published"}).
			AddRow("ev-1", "order-1", "order", "order.created", []byte(`{"amount":"40"}`), now, nil, false))

	events, err := repo.GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetUnpublished: %v", err)
	}
	if len(events) != 1 || events[0].Payload["amount"] != "40" {
		t.Fatalf("unexpected events %+v", events)
	}

	assertExpectations(t, pool)
}
