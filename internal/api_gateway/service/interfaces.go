package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/identity"
	"github.com/reseller-settlement/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// TxRunner runs a unit of work in a serializable transaction
type TxRunner interface {
	RunSerializable(ctx context.Context, fn persistence.TxFunc) error
}

// RegisterAccountInput carries the registration form
type RegisterAccountInput struct {
	Handle   string
	Name     string
	Email    string
	Password string
	Role     account.Role
	Tier     account.Tier
	Balance  decimal.Decimal
}

// AccountService defines the interface for account operations
type AccountService interface {
	// Register creates an account with its opening balance from the role policy.
	// Returns ConflictError when the handle or email is taken
	Register(ctx context.Context, input RegisterAccountInput) (*account.Account, error)

	// GetAccountByID returns NotFoundError if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// CountByRole counts accounts per role
	CountByRole(ctx context.Context) (map[account.Role]int64, error)
}

// PoolService manages the singleton pool record
type PoolService interface {
	// Initialize creates the pool. A second call returns pool.ErrAlreadyInitialized
	Initialize(ctx context.Context, initialBalance decimal.Decimal, apiKey, apiSecret string) (*pool.Pool, error)
	Get(ctx context.Context) (*pool.Pool, error)
}

// SettlementService is the HTTP entry point into the settlement engine
type SettlementService interface {
	SettleSale(ctx context.Context, caller *identity.Identity, request *shared.SaleRequest) (*shared.SaleResult, error)

	// SubmitSale publishes the request for asynchronous settlement and returns its request id
	SubmitSale(ctx context.Context, caller *identity.Identity, request *shared.SaleRequest) (uuid.UUID, error)

	Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*shared.AdjustmentResult, error)
	TopUp(ctx context.Context, request *shared.TopUpRequest) (*shared.TopUpResult, error)
	MarkConsumed(ctx context.Context, caller *identity.Identity, request *shared.TokenConsumptionRequest) (*shared.TokenConsumptionResult, error)

	GetSale(ctx context.Context, id int64) (*ledger.Sale, error)
	ListSales(ctx context.Context, page, perPage int) ([]*ledger.Sale, int64, error)
	ListSalesByPayer(ctx context.Context, handle string, page, perPage int) ([]*ledger.Sale, error)
}

// Overview combines the platform-wide figures shown on the reporting dashboard
type Overview struct {
	From          time.Time
	To            time.Time
	Kinds         []*ledger.KindSummary
	AccountCounts map[account.Role]int64
	Pool          *pool.Pool
}

// ReportService answers queries from the ledger read model
type ReportService interface {
	EntriesByHandle(ctx context.Context, handle string, page, perPage int) ([]*ledger.Entry, int64, error)
	EntriesByRange(ctx context.Context, from, to time.Time, page, perPage int) ([]*ledger.Entry, error)
	Summary(ctx context.Context, from, to time.Time) ([]*ledger.KindSummary, error)
	Overview(ctx context.Context, from, to time.Time) (*Overview, error)
}
