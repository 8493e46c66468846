// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a transaction with WithTx so the settlement
// engine can mutate pool, accounts and ledger atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, handle, name, email, password_hash, role, tier, balance, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. Handle and email collisions surface as shared.ConflictError.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, handle, name, email, password_hash, role, tier, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Handle,
		acc.Name,
		acc.Email,
		acc.PasswordHash,
		acc.Role,
		acc.Tier,
		acc.Balance,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := persistence.UniqueViolation(err); ok {
			switch constraint {
			case "accounts_email_key":
				return shared.ConflictError{Entity: "account", Field: "email", Value: acc.Email}
			default:
				return shared.ConflictError{Entity: "account", Field: "handle", Value: acc.Handle}
			}
		}
		r.logger.Error("Failed to create account", "handle", acc.Handle, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "account", Key: id.String()}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByHandle retrieves an account by its unique handle
func (r *AccountRepository) GetByHandle(ctx context.Context, handle string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE handle = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, handle))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "account", Key: handle}
		}
		r.logger.Error("Failed to get account by handle", "handle", handle, "error", err)
		return nil, fmt.Errorf("failed to get account by handle: %w", err)
	}

	return acc, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (r *AccountRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE handle = $1)`, handle)
}

func (r *AccountRepository) exists(ctx context.Context, query string, value string) (bool, error) {
	var exists bool
	if err := r.querier.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		r.logger.Error("Failed to check account existence", "value", value, "error", err)
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// CountByRole returns the number of accounts per role. Roles without accounts are absent.
func (r *AccountRepository) CountByRole(ctx context.Context) (map[account.Role]int64, error) {
	query := `SELECT role, COUNT(*) FROM accounts GROUP BY role`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count accounts by role", "error", err)
		return nil, fmt.Errorf("failed to count accounts by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[account.Role]int64)
	for rows.Next() {
		var (
			role  account.Role
			count int64
		)
		if err := rows.Scan(&role, &count); err != nil {
			r.logger.Error("Failed to scan role count", "error", err)
			return nil, fmt.Errorf("failed to scan role count: %w", err)
		}
		counts[role] = count
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over role counts", "error", err)
		return nil, fmt.Errorf("error iterating over role counts: %w", err)
	}

	return counts, nil
}

// LockForUpdate reads the account and holds its row lock until the transaction ends.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "account", Key: id.String()}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// UpdateBalance overwrites the balance of a locked account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, balance, id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Entity: "account", Key: id.String()}
	}

	return nil
}

// MirrorPoolBalance overwrites every intermediary balance with the pool balance.
func (r *AccountRepository) MirrorPoolBalance(ctx context.Context, poolBalance decimal.Decimal) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE role IN ('seller', 'master')
	`

	result, err := r.querier.Exec(ctx, query, poolBalance)
	if err != nil {
		r.logger.Error("Failed to mirror pool balance", "pool_balance", poolBalance.String(), "error", err)
		return 0, fmt.Errorf("failed to mirror pool balance: %w", err)
	}

	return result.RowsAffected(), nil
}

// CreditIntermediaries increments every intermediary balance by amount.
func (r *AccountRepository) CreditIntermediaries(ctx context.Context, amount decimal.Decimal) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE role IN ('seller', 'master')
	`

	result, err := r.querier.Exec(ctx, query, amount)
	if err != nil {
		r.logger.Error("Failed to credit intermediaries", "amount", amount.String(), "error", err)
		return 0, fmt.Errorf("failed to credit intermediaries: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.Handle,
		&acc.Name,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Role,
		&acc.Tier,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
