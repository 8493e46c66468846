package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const poolColumns = `balance, mirrored_balance, api_key_hash, api_secret_hash, created_at, updated_at`

// PoolRepository implements pool.Repository over the single-row pool_account table
type PoolRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPoolRepository(logger *slog.Logger, db *persistence.PostgresDB) pool.Repository {
	return &PoolRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PoolRepository) WithTx(tx pgx.Tx) pool.Repository {
	return &PoolRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the singleton row. A second call returns pool.ErrAlreadyInitialized.
func (r *PoolRepository) Create(ctx context.Context, p *pool.Pool) error {
	query := `
		INSERT INTO pool_account (id, balance, mirrored_balance, api_key_hash, api_secret_hash, created_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		p.Balance,
		p.MirroredBalance,
		p.APIKeyHash,
		p.APISecretHash,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create pool", "error", err)
		return fmt.Errorf("failed to create pool: %w", err)
	}

	if result.RowsAffected() == 0 {
		return pool.ErrAlreadyInitialized
	}

	return nil
}

func (r *PoolRepository) Get(ctx context.Context) (*pool.Pool, error) {
	return r.get(ctx, `SELECT `+poolColumns+` FROM pool_account WHERE id = 1`, "get pool")
}

func (r *PoolRepository) LockForUpdate(ctx context.Context) (*pool.Pool, error) {
	return r.get(ctx, `SELECT `+poolColumns+` FROM pool_account WHERE id = 1 FOR UPDATE`, "lock pool for update")
}

func (r *PoolRepository) get(ctx context.Context, query, op string) (*pool.Pool, error) {
	p, err := scanPool(r.querier.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pool.ErrNotInitialized
		}
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return p, nil
}

// SetBalance writes balance to both the balance and its mirror in one statement.
func (r *PoolRepository) SetBalance(ctx context.Context, balance decimal.Decimal) (*pool.Pool, error) {
	query := `
		UPDATE pool_account
		SET balance = $1, mirrored_balance = $1, updated_at = NOW()
		WHERE id = 1
		RETURNING ` + poolColumns

	p, err := scanPool(r.querier.QueryRow(ctx, query, balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pool.ErrNotInitialized
		}
		r.logger.Error("Failed to set pool balance", "balance", balance.String(), "error", err)
		return nil, fmt.Errorf("failed to set pool balance: %w", err)
	}

	return p, nil
}

// Credit adds amount to the balance and its mirror.
func (r *PoolRepository) Credit(ctx context.Context, amount decimal.Decimal) (*pool.Pool, error) {
	query := `
		UPDATE pool_account
		SET balance = balance + $1, mirrored_balance = balance + $1, updated_at = NOW()
		WHERE id = 1
		RETURNING ` + poolColumns

	p, err := scanPool(r.querier.QueryRow(ctx, query, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pool.ErrNotInitialized
		}
		r.logger.Error("Failed to credit pool", "amount", amount.String(), "error", err)
		return nil, fmt.Errorf("failed to credit pool: %w", err)
	}

	return p, nil
}

func scanPool(row pgx.Row) (*pool.Pool, error) {
	var p pool.Pool
	err := row.Scan(
		&p.Balance,
		&p.MirroredBalance,
		&p.APIKeyHash,
		&p.APISecretHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
