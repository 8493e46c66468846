package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/policy"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	txRunner    TxRunner
	accountRepo account.Repository
	poolRepo    pool.Repository
	logger      *slog.Logger
	hashCost    int
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, txRunner TxRunner, accountRepo account.Repository, poolRepo pool.Repository) AccountService {
	return &AccountServiceImpl{
		txRunner:    txRunner,
		accountRepo: accountRepo,
		poolRepo:    poolRepo,
		logger:      logger,
		hashCost:    bcrypt.DefaultCost,
	}
}

// Register checks uniqueness, derives the opening balance from the role policy and
// inserts the account in one serializable transaction. Intermediaries open with
// the current pool balance.
func (s *AccountServiceImpl) Register(ctx context.Context, input RegisterAccountInput) (*account.Account, error) {
	if len(input.Password) < account.MinPasswordLength {
		return nil, shared.ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", account.MinPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var created *account.Account
	err = s.txRunner.RunSerializable(ctx, func(ctx context.Context, tx pgx.Tx) error {
		accounts := s.accountRepo.WithTx(tx)

		handle := account.Slugify(input.Handle)
		if taken, err := accounts.ExistsByHandle(ctx, handle); err != nil {
			return err
		} else if taken {
			return shared.ConflictError{Entity: "account", Field: "handle", Value: handle}
		}
		if taken, err := accounts.ExistsByEmail(ctx, input.Email); err != nil {
			return err
		} else if taken {
			return shared.ConflictError{Entity: "account", Field: "email", Value: input.Email}
		}

		poolBalance, err := s.currentPoolBalance(ctx, tx)
		if err != nil {
			return err
		}

		balance, tier, err := policy.InitialBalance(input.Role, input.Tier, input.Balance, poolBalance)
		if err != nil {
			return err
		}

		acc, err := account.NewAccount(input.Handle, input.Name, input.Email, string(hash), input.Role, tier, balance)
		if err != nil {
			return err
		}
		if err := accounts.Create(ctx, acc); err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		s.logger.Warn("Account registration failed", "handle", input.Handle, "role", input.Role, "error", err)
		return nil, err
	}

	s.logger.Info("Account registered",
		"account_id", created.ID.String(),
		"handle", created.Handle,
		"role", created.Role,
		"balance", created.Balance.StringFixed(2),
	)
	return created, nil
}

func (s *AccountServiceImpl) currentPoolBalance(ctx context.Context, tx pgx.Tx) (*decimal.Decimal, error) {
	p, err := s.poolRepo.WithTx(tx).Get(ctx)
	if err != nil {
		var notFound shared.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p.Balance, nil
}

// GetAccountByID returns NotFoundError if the account doesn't exist
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *AccountServiceImpl) CountByRole(ctx context.Context) (map[account.Role]int64, error) {
	return s.accountRepo.CountByRole(ctx)
}
