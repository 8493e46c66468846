package service

import (
	"context"
	"io"
	"log/slog"

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

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passThroughTxRunner runs fn once with a nil transaction
type passThroughTxRunner struct {
	calls int
}

func (r *passThroughTxRunner) RunSerializable(ctx context.Context, fn persistence.TxFunc) error {
	r.calls++
	return fn(ctx, nil)
}

type MockSequence struct {
	mock.Mock
}

func (m *MockSequence) Next(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

type MockRequestValidator struct {
	mock.Mock
}

func (m *MockRequestValidator) ValidateSale(ctx context.Context, request *shared.SaleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestValidator) IsDuplicate(ctx context.Context, request *shared.SaleRequest) (bool, error) {
	args := m.Called(ctx, request)
	return args.Bool(0), args.Error(1)
}

type MockPayerResolver struct {
	mock.Mock
}

func (m *MockPayerResolver) ResolvePayer(ctx context.Context, tx pgx.Tx, payerID *uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, tx, payerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockPayerResolver) ResolveAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockBalanceManager struct {
	mock.Mock
}

func (m *MockBalanceManager) DebitAccount(ctx context.Context, tx pgx.Tx, acc *account.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, acc, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBalanceManager) AdjustAccount(ctx context.Context, tx pgx.Tx, acc *account.Account, signedAmount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, acc, signedAmount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBalanceManager) DebitPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (*pool.Pool, int64, error) {
	args := m.Called(ctx, tx, amount)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*pool.Pool), args.Get(1).(int64), args.Error(2)
}

func (m *MockBalanceManager) TopUpPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (decimal.Decimal, *pool.Pool, int64, error) {
	args := m.Called(ctx, tx, amount)
	if args.Get(1) == nil {
		return decimal.Zero, nil, 0, args.Error(3)
	}
	return args.Get(0).(decimal.Decimal), args.Get(1).(*pool.Pool), args.Get(2).(int64), args.Error(3)
}

type MockLedgerRecorder struct {
	mock.Mock
}

func (m *MockLedgerRecorder) RecordSale(ctx context.Context, tx pgx.Tx, sale *ledger.Sale) error {
	args := m.Called(ctx, tx, sale)
	return args.Error(0)
}

func (m *MockLedgerRecorder) RecordAdjustment(ctx context.Context, tx pgx.Tx, adjustment *ledger.Adjustment) error {
	args := m.Called(ctx, tx, adjustment)
	return args.Error(0)
}

func (m *MockLedgerRecorder) RecordTopUp(ctx context.Context, tx pgx.Tx, topUp *ledger.TopUp) error {
	args := m.Called(ctx, tx, topUp)
	return args.Error(0)
}

func (m *MockLedgerRecorder) LockToken(ctx context.Context, tx pgx.Tx, payerHandle, tokenKey string) (*ledger.PinRef, error) {
	args := m.Called(ctx, tx, payerHandle, tokenKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PinRef), args.Error(1)
}

func (m *MockLedgerRecorder) RecordTokenConsumption(ctx context.Context, tx pgx.Tx, ref *ledger.PinRef, consumption *ledger.TokenConsumption) error {
	args := m.Called(ctx, tx, ref, consumption)
	return args.Error(0)
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

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, request *shared.SaleRequest, cause error) error {
	args := m.Called(ctx, request, cause)
	return args.Error(0)
}

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessSale(ctx context.Context, request *shared.SaleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}
