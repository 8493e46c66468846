package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByHandle(ctx context.Context, handle string) (*Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByHandle(ctx context.Context, handle string) (bool, error)
	CountByRole(ctx context.Context) (map[Role]int64, error)

	// LockForUpdate reads the account and holds a row lock until the transaction ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// MirrorPoolBalance sets every intermediary balance to poolBalance
	MirrorPoolBalance(ctx context.Context, poolBalance decimal.Decimal) (int64, error)
	// CreditIntermediaries adds amount to every intermediary balance
	CreditIntermediaries(ctx context.Context, amount decimal.Decimal) (int64, error)

	WithTx(tx pgx.Tx) Repository
}
