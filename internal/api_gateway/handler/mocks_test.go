package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reseller-settlement/internal/api_gateway/middleware"
	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/identity"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter returns a router whose requests are authenticated as caller.
// A nil caller leaves requests anonymous.
func setupTestRouter(caller *identity.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.IdentityKey, caller)
			c.Next()
		})
	}
	return r
}

// decodeData unmarshals the data field of the response envelope into out
func decodeData(t *testing.T, body []byte, out interface{}) *Response {
	t.Helper()

	var envelope Response
	require.NoError(t, json.Unmarshal(body, &envelope))
	if out != nil {
		require.NotNil(t, envelope.Data, "'data' field should not be nil")
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return &envelope
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, input service.RegisterAccountInput) (*account.Account, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) CountByRole(ctx context.Context) (map[account.Role]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[account.Role]int64), args.Error(1)
}

type MockPoolService struct {
	mock.Mock
}

func (m *MockPoolService) Initialize(ctx context.Context, initialBalance decimal.Decimal, apiKey, apiSecret string) (*pool.Pool, error) {
	args := m.Called(ctx, initialBalance, apiKey, apiSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

func (m *MockPoolService) Get(ctx context.Context) (*pool.Pool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pool.Pool), args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) SettleSale(ctx context.Context, caller *identity.Identity, request *shared.SaleRequest) (*shared.SaleResult, error) {
	args := m.Called(ctx, caller, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.SaleResult), args.Error(1)
}

func (m *MockSettlementService) SubmitSale(ctx context.Context, caller *identity.Identity, request *shared.SaleRequest) (uuid.UUID, error) {
	args := m.Called(ctx, caller, request)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockSettlementService) Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*shared.AdjustmentResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.AdjustmentResult), args.Error(1)
}

func (m *MockSettlementService) TopUp(ctx context.Context, request *shared.TopUpRequest) (*shared.TopUpResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.TopUpResult), args.Error(1)
}

func (m *MockSettlementService) MarkConsumed(ctx context.Context, caller *identity.Identity, request *shared.TokenConsumptionRequest) (*shared.TokenConsumptionResult, error) {
	args := m.Called(ctx, caller, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.TokenConsumptionResult), args.Error(1)
}

func (m *MockSettlementService) GetSale(ctx context.Context, id int64) (*ledger.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Sale), args.Error(1)
}

func (m *MockSettlementService) ListSales(ctx context.Context, page, perPage int) ([]*ledger.Sale, int64, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Sale), args.Get(1).(int64), args.Error(2)
}

func (m *MockSettlementService) ListSalesByPayer(ctx context.Context, handle string, page, perPage int) ([]*ledger.Sale, error) {
	args := m.Called(ctx, handle, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Sale), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) EntriesByHandle(ctx context.Context, handle string, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, handle, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockReportService) EntriesByRange(ctx context.Context, from, to time.Time, page, perPage int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, from, to, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockReportService) Summary(ctx context.Context, from, to time.Time) ([]*ledger.KindSummary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.KindSummary), args.Error(1)
}

func (m *MockReportService) Overview(ctx context.Context, from, to time.Time) (*service.Overview, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Overview), args.Error(1)
}

var (
	_ service.AccountService    = (*MockAccountService)(nil)
	_ service.PoolService       = (*MockPoolService)(nil)
	_ service.SettlementService = (*MockSettlementService)(nil)
	_ service.ReportService     = (*MockReportService)(nil)
)
