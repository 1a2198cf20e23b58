package mocks

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

var errTxDone = errors.New("transaction already closed")

// MemoryStore is an in-memory transactional store backing every repository
// the use cases need. Transactions are serialized: Begin blocks until the
// previous transaction commits or rolls back, and Rollback restores the
// state captured at Begin.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	entries     []*domain.Entry
	orders      map[string]*domain.Order
	withdrawals map[string]*domain.Withdrawal
	deposits    map[string]*domain.Deposit
	wallets     []*domain.Wallet
	events      []*domain.OutboxEvent

	lockCalls int

	BeginFunc            func(ctx context.Context) error
	CommitFunc           func(ctx context.Context) error
	CreateEntryFunc      func(entry *domain.Entry) error
	CreateOrderFunc      func(order *domain.Order) error
	CreateWithdrawalFunc func(withdrawal *domain.Withdrawal) error
	CreateDepositFunc    func(deposit *domain.Deposit) error
	MarkDepositFunc      func(id string, status domain.DepositStatus) error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*domain.Order),
		withdrawals: make(map[string]*domain.Withdrawal),
		deposits:    make(map[string]*domain.Deposit),
	}
}

type snapshot struct {
	entries     []*domain.Entry
	orders      map[string]*domain.Order
	withdrawals map[string]*domain.Withdrawal
	deposits    map[string]*domain.Deposit
	events      []*domain.OutboxEvent
}

func (s *MemoryStore) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		entries:     append([]*domain.Entry(nil), s.entries...),
		orders:      make(map[string]*domain.Order, len(s.orders)),
		withdrawals: make(map[string]*domain.Withdrawal, len(s.withdrawals)),
		deposits:    make(map[string]*domain.Deposit, len(s.deposits)),
		events:      append([]*domain.OutboxEvent(nil), s.events...),
	}
	for k, v := range s.orders {
		o := *v
		snap.orders[k] = &o
	}
	for k, v := range s.withdrawals {
		w := *v
		snap.withdrawals[k] = &w
	}
	for k, v := range s.deposits {
		d := *v
		snap.deposits[k] = &d
	}
	return snap
}

func (s *MemoryStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = snap.entries
	s.orders = snap.orders
	s.withdrawals = snap.withdrawals
	s.deposits = snap.deposits
	s.events = snap.events
}

// Begin implements usecase.TransactionManager.
func (s *MemoryStore) Begin(ctx context.Context) (usecase.Transaction, error) {
	s.txMu.Lock()

	if s.BeginFunc != nil {
		if err := s.BeginFunc(ctx); err != nil {
			s.txMu.Unlock()
			return nil, err
		}
	}

	return &memoryTx{store: s, snap: s.snapshot()}, nil
}

type memoryTx struct {
	store *MemoryStore
	snap  snapshot
	done  bool
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	if t.store.CommitFunc != nil {
		if err := t.store.CommitFunc(ctx); err != nil {
			return err
		}
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.store.restore(t.snap)
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

// AddWallet registers a managed deposit wallet.
func (s *MemoryStore) AddWallet(wallet *domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = append(s.wallets, wallet)
}

// Entries returns a copy of every ledger entry in append order.
func (s *MemoryStore) Entries() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// EntriesByReason returns the entries carrying reason.
func (s *MemoryStore) EntriesByReason(reason string) []domain.Entry {
	var out []domain.Entry
	for _, e := range s.Entries() {
		if e.Reason == reason {
			out = append(out, e)
		}
	}
	return out
}

// Orders returns the number of stored orders.
func (s *MemoryStore) Orders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Withdrawals returns the number of stored withdrawals.
func (s *MemoryStore) Withdrawals() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.withdrawals)
}

// Deposits returns a copy of every deposit record.
func (s *MemoryStore) Deposits() []domain.Deposit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Deposit, 0, len(s.deposits))
	for _, d := range s.deposits {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Events returns a copy of every outbox event.
func (s *MemoryStore) Events() []domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.OutboxEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}

// LockCalls returns how many times LockUser was called.
func (s *MemoryStore) LockCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lockCalls
}

// EntryRepository returns a usecase.EntryRepository view of the store.
func (s *MemoryStore) EntryRepository() *MemoryEntryRepository {
	return &MemoryEntryRepository{store: s}
}

// OrderRepository returns a usecase.OrderRepository view of the store.
func (s *MemoryStore) OrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{store: s}
}

// WithdrawalRepository returns a usecase.WithdrawalRepository view of the store.
func (s *MemoryStore) WithdrawalRepository() *MemoryWithdrawalRepository {
	return &MemoryWithdrawalRepository{store: s}
}

// DepositRepository returns a usecase.DepositRepository view of the store.
func (s *MemoryStore) DepositRepository() *MemoryDepositRepository {
	return &MemoryDepositRepository{store: s}
}

// WalletRepository returns a usecase.WalletRepository view of the store.
func (s *MemoryStore) WalletRepository() *MemoryWalletRepository {
	return &MemoryWalletRepository{store: s}
}

// OutboxRepository returns a usecase.OutboxRepository view of the store.
func (s *MemoryStore) OutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{store: s}
}

// MemoryEntryRepository implements usecase.EntryRepository.
type MemoryEntryRepository struct {
	store *MemoryStore
}

func (r *MemoryEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if r.store.CreateEntryFunc != nil {
		if err := r.store.CreateEntryFunc(entry); err != nil {
			return err
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e := *entry
	r.store.entries = append(r.store.entries, &e)
	return nil
}

func (r *MemoryEntryRepository) LockUser(ctx context.Context, tx usecase.Transaction, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lockCalls++
	return nil
}

func (r *MemoryEntryRepository) ExistsByReason(ctx context.Context, tx usecase.Transaction, userID, reason string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, e := range r.store.entries {
		if e.UserID == userID && e.Reason == reason {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryEntryRepository) SumByKind(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	credits, deducts := decimal.Zero, decimal.Zero
	for _, e := range r.store.entries {
		if e.UserID != userID {
			continue
		}
		if e.Kind == domain.EntryKindCredit {
			credits = credits.Add(e.Amount)
		} else {
			deducts = deducts.Add(e.Amount)
		}
	}
	return credits, deducts, nil
}

func (r *MemoryEntryRepository) SumReversals(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	total := decimal.Zero
	for _, e := range r.store.entries {
		if e.UserID == userID && e.Kind == domain.EntryKindCredit && domain.IsRefundReason(e.Reason) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *MemoryEntryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Entry
	for i := len(r.store.entries) - 1; i >= 0; i-- {
		if e := r.store.entries[i]; e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}

// MemoryOrderRepository implements usecase.OrderRepository.
type MemoryOrderRepository struct {
	store *MemoryStore
}

func (r *MemoryOrderRepository) Create(ctx context.Context, tx usecase.Transaction, order *domain.Order) error {
	if r.store.CreateOrderFunc != nil {
		if err := r.store.CreateOrderFunc(order); err != nil {
			return err
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o := *order
	r.store.orders[order.ID] = &o
	return nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (r *MemoryOrderRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.OrderStatus, completedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	o.CompletedAt = &completedAt
	o.UpdatedAt = completedAt
	return nil
}

func (r *MemoryOrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Order
	for _, o := range r.store.orders {
		if o.UserID == userID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// MemoryWithdrawalRepository implements usecase.WithdrawalRepository.
type MemoryWithdrawalRepository struct {
	store *MemoryStore
}

func (r *MemoryWithdrawalRepository) Create(ctx context.Context, tx usecase.Transaction, withdrawal *domain.Withdrawal) error {
	if r.store.CreateWithdrawalFunc != nil {
		if err := r.store.CreateWithdrawalFunc(withdrawal); err != nil {
			return err
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w := *withdrawal
	r.store.withdrawals[withdrawal.ID] = &w
	return nil
}

func (r *MemoryWithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.withdrawals[id]
	if !ok {
		return nil, domain.ErrWithdrawalNotFound
	}
	c := *w
	return &c, nil
}

func (r *MemoryWithdrawalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryWithdrawalRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.WithdrawalStatus, completedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.withdrawals[id]
	if !ok {
		return domain.ErrWithdrawalNotFound
	}
	w.Status = status
	w.CompletedAt = &completedAt
	w.UpdatedAt = completedAt
	return nil
}

func (r *MemoryWithdrawalRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Withdrawal
	for _, w := range r.store.withdrawals {
		if w.UserID == userID {
			c := *w
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// MemoryDepositRepository implements usecase.DepositRepository.
type MemoryDepositRepository struct {
	store *MemoryStore
}

func (r *MemoryDepositRepository) Create(ctx context.Context, tx usecase.Transaction, deposit *domain.Deposit) error {
	if r.store.CreateDepositFunc != nil {
		if err := r.store.CreateDepositFunc(deposit); err != nil {
			return err
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, d := range r.store.deposits {
		if d.SourceTxID == deposit.SourceTxID {
			return domain.ErrDuplicateDeposit
		}
	}
	d := *deposit
	r.store.deposits[deposit.ID] = &d
	return nil
}

func (r *MemoryDepositRepository) ExistsBySourceTxID(ctx context.Context, sourceTxID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, d := range r.store.deposits {
		if d.SourceTxID == sourceTxID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryDepositRepository) SetForwardTxID(ctx context.Context, tx usecase.Transaction, id, forwardTxID string, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.deposits[id]
	if !ok {
		return domain.ErrDepositNotFound
	}
	if d.Status != domain.DepositStatusPending {
		return domain.ErrInvalidTransition
	}
	d.ForwardTxID = &forwardTxID
	d.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryDepositRepository) MarkForwarded(ctx context.Context, tx usecase.Transaction, id, forwardTxID string, updatedAt time.Time) error {
	return r.mark(id, domain.DepositStatusForwarded, "", &forwardTxID, updatedAt)
}

func (r *MemoryDepositRepository) MarkFailed(ctx context.Context, tx usecase.Transaction, id, reason string, forwardTxID *string, updatedAt time.Time) error {
	return r.mark(id, domain.DepositStatusFailed, reason, forwardTxID, updatedAt)
}

func (r *MemoryDepositRepository) mark(id string, status domain.DepositStatus, reason string, forwardTxID *string, updatedAt time.Time) error {
	if r.store.MarkDepositFunc != nil {
		if err := r.store.MarkDepositFunc(id, status); err != nil {
			return err
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.deposits[id]
	if !ok {
		return domain.ErrDepositNotFound
	}
	if d.Status != domain.DepositStatusPending {
		return domain.ErrInvalidTransition
	}
	d.Status = status
	d.FailureReason = reason
	d.ForwardTxID = forwardTxID
	d.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryDepositRepository) SumForwardedByUser(ctx context.Context, tx usecase.Transaction, userID string) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sum := decimal.Zero
	for _, d := range r.store.deposits {
		if d.UserID == userID && d.Status == domain.DepositStatusForwarded {
			sum = sum.Add(d.Amount)
		}
	}
	return sum, nil
}

func (r *MemoryDepositRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Deposit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Deposit
	for _, d := range r.store.deposits {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *MemoryDepositRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Deposit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Deposit
	for _, d := range r.store.deposits {
		if d.Status == domain.DepositStatusPending && d.UpdatedAt.Before(before) {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return page(out, limit, 0), nil
}

// MemoryWalletRepository implements usecase.WalletRepository.
type MemoryWalletRepository struct {
	store *MemoryStore
}

func (r *MemoryWalletRepository) List(ctx context.Context) ([]*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]*domain.Wallet(nil), r.store.wallets...), nil
}

// MemoryOutboxRepository implements usecase.OutboxRepository.
type MemoryOutboxRepository struct {
	store *MemoryStore
}

func (r *MemoryOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e := *event
	r.store.events = append(r.store.events, &e)
	return nil
}

func (r *MemoryOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range r.store.events {
		if !e.Published {
			c := *e
			out = append(out, &c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (r *MemoryOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.events[:0]
	for _, e := range r.store.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.events = kept
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// SequenceIDGenerator implements usecase.IDGenerator with a prefixed counter.
type SequenceIDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewSequenceIDGenerator creates a SequenceIDGenerator.
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{prefix: prefix}
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.prefix + "-" + strconv.Itoa(g.counter)
}
