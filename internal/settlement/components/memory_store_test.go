package components

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/catalog"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/outbox"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/persistence"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStore is an in-memory stand-in for the authoritative store. Its
// RunSerializable restores the previous state when the unit of work fails.
type memoryStore struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]account.Account
	pool        *pool.Pool
	sales       []ledger.Sale
	adjustments []ledger.Adjustment
	topUps      []ledger.TopUp
	outbox      []outbox.Message
	counter     int64
	products    map[string]*catalog.Product
}

type memorySnapshot struct {
	accounts    map[uuid.UUID]account.Account
	pool        *pool.Pool
	sales       []ledger.Sale
	adjustments []ledger.Adjustment
	topUps      []ledger.TopUp
	outbox      []outbox.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[uuid.UUID]account.Account),
		products: make(map[string]*catalog.Product),
	}
}

func (s *memoryStore) snapshot() memorySnapshot {
	accounts := make(map[uuid.UUID]account.Account, len(s.accounts))
	for id, acc := range s.accounts {
		accounts[id] = acc
	}
	snap := memorySnapshot{
		accounts:    accounts,
		sales:       append([]ledger.Sale(nil), s.sales...),
		adjustments: append([]ledger.Adjustment(nil), s.adjustments...),
		topUps:      append([]ledger.TopUp(nil), s.topUps...),
		outbox:      append([]outbox.Message(nil), s.outbox...),
	}
	for i := range snap.sales {
		snap.sales[i].Pins = append([]ledger.Pin(nil), s.sales[i].Pins...)
	}
	if s.pool != nil {
		p := *s.pool
		snap.pool = &p
	}
	return snap
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.accounts = snap.accounts
	s.pool = snap.pool
	s.sales = snap.sales
	s.adjustments = snap.adjustments
	s.topUps = snap.topUps
	s.outbox = snap.outbox
}

func (s *memoryStore) RunSerializable(ctx context.Context, fn persistence.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memoryStore) addAccount(handle string, role account.Role, balance string) *account.Account {
	acc := account.Account{
		ID:      uuid.New(),
		Handle:  handle,
		Name:    handle,
		Email:   handle + "@example.com",
		Role:    role,
		Tier:    account.TierUnlimited,
		Balance: decimal.RequireFromString(balance),
	}
	if role == account.RoleClient {
		acc.Tier = account.TierOro
	}
	s.accounts[acc.ID] = acc
	return &acc
}

func (s *memoryStore) balanceOf(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func (s *memoryStore) repositories() Repositories {
	return Repositories{
		Accounts:    &memoryAccounts{s},
		Pool:        &memoryPool{s},
		Sales:       &memorySales{s},
		Adjustments: &memoryAdjustments{s},
		TopUps:      &memoryTopUps{s},
		Outbox:      &memoryOutbox{s},
		Sequence:    &memorySequence{s},
		Catalog:     &memoryCatalog{s},
	}
}

type memoryAccounts struct{ s *memoryStore }

func (r *memoryAccounts) Create(_ context.Context, acc *account.Account) error {
	r.s.accounts[acc.ID] = *acc
	return nil
}

func (r *memoryAccounts) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, shared.NotFoundError{Entity: "account", Key: id.String()}
	}
	return &acc, nil
}

func (r *memoryAccounts) GetByHandle(_ context.Context, handle string) (*account.Account, error) {
	for _, acc := range r.s.accounts {
		if acc.Handle == handle {
			found := acc
			return &found, nil
		}
	}
	return nil, shared.NotFoundError{Entity: "account", Key: handle}
}

func (r *memoryAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, acc := range r.s.accounts {
		if acc.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAccounts) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	_, err := r.GetByHandle(ctx, handle)
	return err == nil, nil
}

func (r *memoryAccounts) CountByRole(_ context.Context) (map[account.Role]int64, error) {
	counts := make(map[account.Role]int64)
	for _, acc := range r.s.accounts {
		counts[acc.Role]++
	}
	return counts, nil
}

func (r *memoryAccounts) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryAccounts) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	acc, ok := r.s.accounts[id]
	if !ok {
		return shared.NotFoundError{Entity: "account", Key: id.String()}
	}
	acc.Balance = balance
	r.s.accounts[id] = acc
	return nil
}

func (r *memoryAccounts) MirrorPoolBalance(_ context.Context, poolBalance decimal.Decimal) (int64, error) {
	var n int64
	for id, acc := range r.s.accounts {
		if acc.Role.IsIntermediary() {
			acc.Balance = poolBalance
			r.s.accounts[id] = acc
			n++
		}
	}
	return n, nil
}

func (r *memoryAccounts) CreditIntermediaries(_ context.Context, amount decimal.Decimal) (int64, error) {
	var n int64
	for id, acc := range r.s.accounts {
		if acc.Role.IsIntermediary() {
			acc.Balance = acc.Balance.Add(amount)
			r.s.accounts[id] = acc
			n++
		}
	}
	return n, nil
}

func (r *memoryAccounts) WithTx(pgx.Tx) account.Repository { return r }

type memoryPool struct{ s *memoryStore }

func (r *memoryPool) Create(_ context.Context, p *pool.Pool) error {
	if r.s.pool != nil {
		return pool.ErrAlreadyInitialized
	}
	created := *p
	r.s.pool = &created
	return nil
}

func (r *memoryPool) Get(_ context.Context) (*pool.Pool, error) {
	if r.s.pool == nil {
		return nil, pool.ErrNotInitialized
	}
	p := *r.s.pool
	return &p, nil
}

func (r *memoryPool) LockForUpdate(ctx context.Context) (*pool.Pool, error) {
	return r.Get(ctx)
}

func (r *memoryPool) SetBalance(ctx context.Context, balance decimal.Decimal) (*pool.Pool, error) {
	if r.s.pool == nil {
		return nil, pool.ErrNotInitialized
	}
	r.s.pool.Balance = balance
	r.s.pool.MirroredBalance = balance
	return r.Get(ctx)
}

func (r *memoryPool) Credit(ctx context.Context, amount decimal.Decimal) (*pool.Pool, error) {
	if r.s.pool == nil {
		return nil, pool.ErrNotInitialized
	}
	r.s.pool.Balance = r.s.pool.Balance.Add(amount)
	r.s.pool.MirroredBalance = r.s.pool.Balance
	return r.Get(ctx)
}

func (r *memoryPool) WithTx(pgx.Tx) pool.Repository { return r }

type memorySales struct{ s *memoryStore }

func (r *memorySales) Create(_ context.Context, sale *ledger.Sale) error {
	for _, existing := range r.s.sales {
		if sale.ExternalOrderID != "" && existing.ExternalOrderID == sale.ExternalOrderID {
			return shared.ConflictError{Entity: "sale", Field: "external_order_id", Value: sale.ExternalOrderID}
		}
		for _, sold := range existing.Pins {
			for _, pin := range sale.Pins {
				if pin.Key == sold.Key {
					return shared.ConflictError{Entity: "token", Field: "token_key", Value: pin.Key}
				}
			}
		}
	}
	stored := *sale
	stored.Pins = append([]ledger.Pin(nil), sale.Pins...)
	r.s.sales = append(r.s.sales, stored)
	return nil
}

func (r *memorySales) GetByID(_ context.Context, id int64) (*ledger.Sale, error) {
	for _, sale := range r.s.sales {
		if sale.ID == id {
			found := sale
			return &found, nil
		}
	}
	return nil, shared.NotFoundError{Entity: "sale", Key: "missing"}
}

func (r *memorySales) List(_ context.Context, _, _ int) ([]*ledger.Sale, error) {
	sales := make([]*ledger.Sale, 0, len(r.s.sales))
	for i := range r.s.sales {
		sales = append(sales, &r.s.sales[i])
	}
	return sales, nil
}

func (r *memorySales) Count(_ context.Context) (int64, error) {
	return int64(len(r.s.sales)), nil
}

func (r *memorySales) ListByPayerHandle(_ context.Context, handle string, _, _ int) ([]*ledger.Sale, error) {
	sales := make([]*ledger.Sale, 0)
	for i := range r.s.sales {
		if r.s.sales[i].PayerHandle() == handle {
			sales = append(sales, &r.s.sales[i])
		}
	}
	return sales, nil
}

func (r *memorySales) ExistsByExternalOrderID(_ context.Context, externalOrderID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.sales {
		if externalOrderID != "" && sale.ExternalOrderID == externalOrderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memorySales) LockPin(_ context.Context, payerHandle, tokenKey string) (*ledger.PinRef, error) {
	for _, sale := range r.s.sales {
		if sale.PayerHandle() != payerHandle {
			continue
		}
		for position, pin := range sale.Pins {
			if pin.Key == tokenKey {
				return &ledger.PinRef{SaleID: sale.ID, Position: position, TokenKey: pin.Key, Consumed: pin.Consumed}, nil
			}
		}
	}
	return nil, shared.NotFoundError{Entity: "token", Key: payerHandle + "/" + tokenKey}
}

func (r *memorySales) SetPinConsumed(_ context.Context, ref *ledger.PinRef, consumedAt time.Time) error {
	for i := range r.s.sales {
		if r.s.sales[i].ID == ref.SaleID {
			r.s.sales[i].Pins[ref.Position].Consumed = true
			r.s.sales[i].Pins[ref.Position].ConsumedAt = &consumedAt
			return nil
		}
	}
	return shared.NotFoundError{Entity: "sale", Key: "missing"}
}

func (r *memorySales) WithTx(pgx.Tx) ledger.SaleRepository { return r }

type memoryAdjustments struct{ s *memoryStore }

func (r *memoryAdjustments) Create(_ context.Context, adjustment *ledger.Adjustment) error {
	r.s.adjustments = append(r.s.adjustments, *adjustment)
	return nil
}

func (r *memoryAdjustments) WithTx(pgx.Tx) ledger.AdjustmentRepository { return r }

type memoryTopUps struct{ s *memoryStore }

func (r *memoryTopUps) Create(_ context.Context, topUp *ledger.TopUp) error {
	r.s.topUps = append(r.s.topUps, *topUp)
	return nil
}

func (r *memoryTopUps) WithTx(pgx.Tx) ledger.TopUpRepository { return r }

type memoryOutbox struct{ s *memoryStore }

func (r *memoryOutbox) Create(_ context.Context, message *outbox.Message) error {
	message.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, *message)
	return nil
}

func (r *memoryOutbox) GetPending(_ context.Context, _ int) ([]*outbox.Message, error) {
	return nil, nil
}

func (r *memoryOutbox) UpdateStatus(_ context.Context, _ int64, _ shared.OutboxStatus) error {
	return nil
}

func (r *memoryOutbox) IncrementAttempts(_ context.Context, _ int64) error { return nil }

func (r *memoryOutbox) WithTx(pgx.Tx) outbox.Repository { return r }

type memorySequence struct{ s *memoryStore }

// Next runs outside RunSerializable, like the autocommit counter upsert.
func (r *memorySequence) Next(_ context.Context, _ string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.counter++
	return r.s.counter, nil
}

type memoryCatalog struct{ s *memoryStore }

func (r *memoryCatalog) GetByCode(_ context.Context, code string) (*catalog.Product, error) {
	product, ok := r.s.products[code]
	if !ok {
		return nil, shared.NotFoundError{Entity: "product", Key: code}
	}
	return product, nil
}
