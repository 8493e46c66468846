package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/persistence"
)

type passThroughTxRunner struct{}

func (passThroughTxRunner) RunSerializable(ctx context.Context, fn persistence.TxFunc) error {
	return fn(ctx, nil)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByHandle(ctx context.Context, handle string) (*account.Account, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	args := m.Called(ctx, handle)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) CountByRole(ctx context.Context) (map[account.Role]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[account.Role]int64), args.Error(1)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockAccountRepository) MirrorPoolBalance(ctx context.Context, poolBalance decimal.Decimal) (int64, error) {
	args := m.Called(ctx, poolBalance)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) CreditIntermediaries(ctx context.Context, amount decimal.Decimal) (int64, error) {
	args := m.Called(ctx, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(account.Repository)
}

type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) Create(ctx context.Context, p *pool.Pool) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPoolRepository) Get(ctx context.Context) (*pool.Pool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

func (m *MockPoolRepository) LockForUpdate(ctx context.Context) (*pool.Pool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

func (m *MockPoolRepository) SetBalance(ctx context.Context, balance decimal.Decimal) (*pool.Pool, error) {
	args := m.Called(ctx, balance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

func (m *MockPoolRepository) Credit(ctx context.Context, amount decimal.Decimal) (*pool.Pool, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

func (m *MockPoolRepository) WithTx(tx pgx.Tx) pool.Repository {
	args := m.Called(tx)
	return args.Get(0).(pool.Repository)
}

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) Create(ctx context.Context, sale *ledger.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) GetByID(ctx context.Context, id int64) (*ledger.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Sale), args.Error(1)
}

func (m *MockSaleRepository) List(ctx context.Context, limit, offset int) ([]*ledger.Sale, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Sale), args.Error(1)
}

func (m *MockSaleRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSaleRepository) ListByPayerHandle(ctx context.Context, handle string, limit, offset int) ([]*ledger.Sale, error) {
	args := m.Called(ctx, handle, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Sale), args.Error(1)
}

func (m *MockSaleRepository) ExistsByExternalOrderID(ctx context.Context, externalOrderID string) (bool, error) {
	args := m.Called(ctx, externalOrderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSaleRepository) LockPin(ctx context.Context, payerHandle, tokenKey string) (*ledger.PinRef, error) {
	args := m.Called(ctx, payerHandle, tokenKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PinRef), args.Error(1)
}

func (m *MockSaleRepository) SetPinConsumed(ctx context.Context, ref *ledger.PinRef, consumedAt time.Time) error {
	args := m.Called(ctx, ref, consumedAt)
	return args.Error(0)
}

func (m *MockSaleRepository) WithTx(tx pgx.Tx) ledger.SaleRepository {
	args := m.Called(tx)
	return args.Get(0).(ledger.SaleRepository)
}

type MockReadRepository struct {
	mock.Mock
}

func (m *MockReadRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockReadRepository) SetTokenConsumed(ctx context.Context, consumption *ledger.TokenConsumption) error {
	args := m.Called(ctx, consumption)
	return args.Error(0)
}

func (m *MockReadRepository) GetByAccountHandle(ctx context.Context, handle string, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, handle, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockReadRepository) CountByAccountHandle(ctx context.Context, handle string) (int64, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReadRepository) GetByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, from, to, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockReadRepository) Summarize(ctx context.Context, from, to time.Time) ([]*ledger.KindSummary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.KindSummary), args.Error(1)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) SettleSale(ctx context.Context, request *shared.SaleRequest) (*shared.SaleResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.SaleResult), args.Error(1)
}

func (m *MockEngine) Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*shared.AdjustmentResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.AdjustmentResult), args.Error(1)
}

func (m *MockEngine) TopUp(ctx context.Context, request *shared.TopUpRequest) (*shared.TopUpResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.TopUpResult), args.Error(1)
}

func (m *MockEngine) MarkConsumed(ctx context.Context, request *shared.TokenConsumptionRequest) (*shared.TokenConsumptionResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.TokenConsumptionResult), args.Error(1)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
