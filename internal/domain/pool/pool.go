// Package pool models the singleton administrator balance that funds every
// intermediary account.
package pool

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Pool is the single source of funds. MirroredBalance equals Balance after every commit.
type Pool struct {
	Balance         decimal.Decimal `json:"balance"`
	MirroredBalance decimal.Decimal `json:"mirrored_balance"`
	APIKeyHash      string          `json:"-"`
	APISecretHash   string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewPool builds the pool record with hashed API credentials.
func NewPool(initialBalance decimal.Decimal, apiKeyHash, apiSecretHash string) (*Pool, error) {
	if initialBalance.IsNegative() {
		return nil, shared.ValidationError{Field: "balance", Message: "must not be negative"}
	}
	if apiKeyHash == "" || apiSecretHash == "" {
		return nil, shared.ValidationError{Field: "api_credentials", Message: "are required"}
	}

	now := time.Now().UTC()
	return &Pool{
		Balance:         initialBalance,
		MirroredBalance: initialBalance,
		APIKeyHash:      apiKeyHash,
		APISecretHash:   apiSecretHash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// InSync reports whether the mirrored field matches the balance.
func (p *Pool) InSync() bool {
	return p.Balance.Equal(p.MirroredBalance)
}

// ErrNotInitialized is the NotFoundError returned while no pool exists.
var ErrNotInitialized = shared.NotFoundError{Entity: "pool", Key: "singleton"}

// ErrAlreadyInitialized is returned when a second pool is created.
var ErrAlreadyInitialized = shared.PolicyError{Reason: "pool already initialized"}

// Repository persists the singleton pool record
type Repository interface {
	Create(ctx context.Context, pool *Pool) error
	Get(ctx context.Context) (*Pool, error)

	// LockForUpdate reads the pool and holds a row lock until the transaction ends
	LockForUpdate(ctx context.Context) (*Pool, error)
	// SetBalance overwrites balance and mirrored balance with the same value
	SetBalance(ctx context.Context, balance decimal.Decimal) (*Pool, error)
	// Credit increments balance and mirrored balance by amount
	Credit(ctx context.Context, amount decimal.Decimal) (*Pool, error)

	WithTx(tx pgx.Tx) Repository
}
