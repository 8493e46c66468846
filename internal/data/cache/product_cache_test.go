package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reseller-settlement/internal/domain/catalog"
	"github.com/reseller-settlement/internal/domain/shared"
)

type MockCmdable struct {
	mock.Mock
}

func (m *MockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *MockCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testProduct() *catalog.Product {
	return &catalog.Product{
		Code:      "FF-100",
		Name:      "Free Fire 100",
		Price:     decimal.RequireFromString("10.00"),
		PriceOro:  decimal.RequireFromString("9.00"),
		Available: true,
	}
}

func TestNewProductCache_DisabledReturnsCatalog(t *testing.T) {
	next := &MockCatalog{}

	repo := NewProductCache(newTestLogger(), next, &MockCmdable{}, 0)
	assert.Same(t, next, repo)

	repo = NewProductCache(newTestLogger(), next, nil, time.Minute)
	assert.Same(t, next, repo)
}

func TestProductCache_GetByCode(t *testing.T) {
	ctx := context.Background()
	product := testProduct()
	cached, err := json.Marshal(product)
	require.NoError(t, err)

	tests := []struct {
		name       string
		setupMocks func(client *MockCmdable, next *MockCatalog)
		wantErr    error
	}{
		{
			name: "cache hit skips catalog",
			setupMocks: func(client *MockCmdable, next *MockCatalog) {
				client.On("Get", ctx, "catalog:product:FF-100").Return(redis.NewStringResult(string(cached), nil))
			},
		},
		{
			name: "cache miss loads and stores",
			setupMocks: func(client *MockCmdable, next *MockCatalog) {
				client.On("Get", ctx, "catalog:product:FF-100").Return(redis.NewStringResult("", redis.Nil))
				next.On("GetByCode", ctx, "FF-100").Return(product, nil)
				client.On("Set", ctx, "catalog:product:FF-100", mock.Anything, time.Minute).Return(redis.NewStatusResult("OK", nil))
			},
		},
		{
			name: "redis down falls through to catalog",
			setupMocks: func(client *MockCmdable, next *MockCatalog) {
				client.On("Get", ctx, "catalog:product:FF-100").Return(redis.NewStringResult("", errors.New("connection refused")))
				next.On("GetByCode", ctx, "FF-100").Return(product, nil)
				client.On("Set", ctx, "catalog:product:FF-100", mock.Anything, time.Minute).Return(redis.NewStatusResult("", errors.New("connection refused")))
			},
		},
		{
			name: "corrupt cache entry is reloaded",
			setupMocks: func(client *MockCmdable, next *MockCatalog) {
				client.On("Get", ctx, "catalog:product:FF-100").Return(redis.NewStringResult("{not json", nil))
				next.On("GetByCode", ctx, "FF-100").Return(product, nil)
				client.On("Set", ctx, "catalog:product:FF-100", mock.Anything, time.Minute).Return(redis.NewStatusResult("OK", nil))
			},
		},
		{
			name: "unknown product is not cached",
			setupMocks: func(client *MockCmdable, next *MockCatalog) {
				client.On("Get", ctx, "catalog:product:FF-100").Return(redis.NewStringResult("", redis.Nil))
				next.On("GetByCode", ctx, "FF-100").Return(nil, shared.NotFoundError{Entity: "product", Key: "FF-100"})
			},
			wantErr: shared.NotFoundError{Entity: "product", Key: "FF-100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockCmdable{}
			next := &MockCatalog{}
			tt.setupMocks(client, next)

			repo := NewProductCache(newTestLogger(), next, client, time.Minute)
			got, err := repo.GetByCode(ctx, "FF-100")

			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, product.Code, got.Code)
				assert.True(t, product.Price.Equal(got.Price))
				assert.True(t, product.PriceOro.Equal(got.PriceOro))
			}

			client.AssertExpectations(t)
			next.AssertExpectations(t)
		})
	}
}
