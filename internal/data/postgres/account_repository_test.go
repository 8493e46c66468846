package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{"id", "handle", "name", "email", "password_hash", "role", "tier", "balance", "created_at", "updated_at"}

func newTestAccount(role account.Role, tier account.Tier, balance string) *account.Account {
	now := time.Now().UTC()
	return &account.Account{
		ID:           uuid.New(),
		Handle:       "tienda-norte",
		Name:         "Tienda Norte",
		Email:        "norte@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         role,
		Tier:         tier,
		Balance:      decimal.RequireFromString(balance),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountRows(acc *account.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountRowColumns).AddRow(
		acc.ID, acc.Handle, acc.Name, acc.Email, acc.PasswordHash,
		acc.Role, acc.Tier, acc.Balance, acc.CreatedAt, acc.UpdatedAt,
	)
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	acc := newTestAccount(account.RoleClient, account.TierOro, "150.00")

	query := `INSERT INTO accounts`
	args := []interface{}{acc.ID, acc.Handle, acc.Name, acc.Email, acc.PasswordHash, acc.Role, acc.Tier, acc.Balance, acc.CreatedAt, acc.UpdatedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

		err := repo.Create(ctx, acc)
		var conflict shared.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "email", conflict.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate handle", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_handle_key"})

		err := repo.Create(ctx, acc)
		var conflict shared.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "handle", conflict.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	acc := newTestAccount(account.RoleSeller, account.TierUnlimited, "900.50")

	query := `SELECT .+ FROM accounts WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnRows(accountRows(acc))

		got, err := repo.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc.Handle, got.Handle)
		assert.Equal(t, account.RoleSeller, got.Role)
		assert.True(t, acc.Balance.Equal(got.Balance))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnRows(pgxmock.NewRows(accountRowColumns))

		got, err := repo.GetByID(ctx, acc.ID)
		assert.Nil(t, got)
		var notFound shared.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "account", notFound.Entity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		expectedErr := errors.New("connection reset")
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnError(expectedErr)

		got, err := repo.GetByID(ctx, acc.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByHandle(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc := newTestAccount(account.RoleClient, account.TierBronce, "10.00")

	query := `SELECT .+ FROM accounts WHERE handle = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.Handle).WillReturnRows(accountRows(acc))

		got, err := repo.GetByHandle(ctx, acc.Handle)
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("ghost").WillReturnRows(pgxmock.NewRows(accountRowColumns))

		_, err := repo.GetByHandle(ctx, "ghost")
		var notFound shared.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ghost", notFound.Key)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Exists(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	t.Run("email taken", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE email = \$1\)`).
			WithArgs("norte@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByEmail(ctx, "norte@example.com")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("handle free", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE handle = \$1\)`).
			WithArgs("tienda-sur").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsByHandle(ctx, "tienda-sur")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs("x").WillReturnError(errors.New("boom"))

		_, err := repo.ExistsByHandle(ctx, "x")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_CountByRole(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectQuery(`SELECT role, COUNT\(\*\) FROM accounts GROUP BY role`).
		WillReturnRows(pgxmock.NewRows([]string{"role", "count"}).
			AddRow(account.RoleClient, int64(12)).
			AddRow(account.RoleSeller, int64(3)))

	counts, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), counts[account.RoleClient])
	assert.Equal(t, int64(3), counts[account.RoleSeller])
	assert.NotContains(t, counts, account.RoleMaster)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc := newTestAccount(account.RoleClient, account.TierDiamante, "75.25")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(`FROM accounts WHERE id = \$1 FOR UPDATE`).WithArgs(acc.ID).WillReturnRows(accountRows(acc))

		got, err := repo.LockForUpdate(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "75.25", got.Balance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(acc.ID).WillReturnRows(pgxmock.NewRows(accountRowColumns))

		_, err := repo.LockForUpdate(ctx, acc.ID)
		var notFound shared.NotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	query := `UPDATE accounts SET balance = \$1, updated_at = NOW\(\) WHERE id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(decimalEq("40.10"), id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateBalance(ctx, id, decimal.RequireFromString("40.1"))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(decimalEq("1"), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateBalance(ctx, id, decimal.NewFromInt(1))
		var notFound shared.NotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_IntermediaryUpdates(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	t.Run("mirror pool balance", func(t *testing.T) {
		mock.ExpectExec(`SET balance = \$1, updated_at = NOW\(\) WHERE role IN \('seller', 'master'\)`).
			WithArgs(decimalEq("880.00")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 4))

		synced, err := repo.MirrorPoolBalance(ctx, decimal.RequireFromString("880"))
		require.NoError(t, err)
		assert.Equal(t, int64(4), synced)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit intermediaries", func(t *testing.T) {
		mock.ExpectExec(`SET balance = balance \+ \$1`).
			WithArgs(decimalEq("100")).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		credited, err := repo.CreditIntermediaries(ctx, decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.Equal(t, int64(2), credited)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mirror failure", func(t *testing.T) {
		expectedErr := errors.New("serialization failure")
		mock.ExpectExec(`WHERE role IN`).WithArgs(decimalEq("1")).WillReturnError(expectedErr)

		_, err := repo.MirrorPoolBalance(ctx, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
