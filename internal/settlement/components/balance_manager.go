package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/money"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/settlement/service"
)

// BalanceManagerImpl holds the debit and credit primitives. Every new balance is
// rounded to two decimals and checked for representability before it is written.
type BalanceManagerImpl struct {
	accountRepo account.Repository
	poolRepo    pool.Repository
	logger      *slog.Logger
}

func NewBalanceManager(accountRepo account.Repository, poolRepo pool.Repository, logger *slog.Logger) service.BalanceManager {
	return &BalanceManagerImpl{
		accountRepo: accountRepo,
		poolRepo:    poolRepo,
		logger:      logger,
	}
}

// DebitAccount charges acc, which must already be locked in tx.
func (m *BalanceManagerImpl) DebitAccount(ctx context.Context, tx pgx.Tx, acc *account.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	if !money.Covers(acc.Balance, amount) {
		return decimal.Zero, shared.InsufficientFundsError{
			AccountID: acc.ID,
			Balance:   acc.Balance,
			Required:  amount,
		}
	}

	newBalance, err := money.Debit("account debit", acc.Balance, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := m.accountRepo.WithTx(tx).UpdateBalance(ctx, acc.ID, newBalance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to debit account %s: %w", acc.ID.String(), err)
	}

	m.logger.Debug("Account debited", "account_id", acc.ID.String(), "amount", amount.StringFixed(2), "new_balance", newBalance.StringFixed(2))
	acc.Balance = newBalance
	return newBalance, nil
}

// AdjustAccount adds a signed amount to acc. A result below zero is refused.
func (m *BalanceManagerImpl) AdjustAccount(ctx context.Context, tx pgx.Tx, acc *account.Account, signedAmount decimal.Decimal) (decimal.Decimal, error) {
	newBalance, err := money.Credit("account adjustment", acc.Balance, signedAmount)
	if err != nil {
		return decimal.Zero, err
	}
	if newBalance.IsNegative() {
		return decimal.Zero, shared.InsufficientFundsError{
			AccountID: acc.ID,
			Balance:   acc.Balance,
			Required:  signedAmount.Abs(),
		}
	}

	if err := m.accountRepo.WithTx(tx).UpdateBalance(ctx, acc.ID, newBalance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust account %s: %w", acc.ID.String(), err)
	}

	acc.Balance = newBalance
	return newBalance, nil
}

// DebitPool charges the pool and overwrites every intermediary balance with the
// new pool balance.
func (m *BalanceManagerImpl) DebitPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (*pool.Pool, int64, error) {
	poolTx := m.poolRepo.WithTx(tx)

	current, err := poolTx.LockForUpdate(ctx)
	if err != nil {
		return nil, 0, err
	}

	if !money.Covers(current.Balance, amount) {
		return nil, 0, shared.InsufficientPoolFundsError{
			Balance:  current.Balance,
			Required: amount,
		}
	}

	newBalance, err := money.Debit("pool debit", current.Balance, amount)
	if err != nil {
		return nil, 0, err
	}

	updated, err := poolTx.SetBalance(ctx, newBalance)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to debit pool: %w", err)
	}

	synced, err := m.accountRepo.WithTx(tx).MirrorPoolBalance(ctx, updated.Balance)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to mirror pool balance: %w", err)
	}

	m.logger.Debug("Pool debited", "amount", amount.StringFixed(2), "new_balance", updated.Balance.StringFixed(2), "intermediaries_synced", synced)
	return updated, synced, nil
}

// TopUpPool increments the pool and every intermediary by amount.
func (m *BalanceManagerImpl) TopUpPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (decimal.Decimal, *pool.Pool, int64, error) {
	poolTx := m.poolRepo.WithTx(tx)

	current, err := poolTx.LockForUpdate(ctx)
	if err != nil {
		return decimal.Zero, nil, 0, err
	}

	credit, err := money.Round2("pool top-up", amount)
	if err != nil {
		return decimal.Zero, nil, 0, err
	}
	if _, err := money.Credit("pool top-up", current.Balance, credit); err != nil {
		return decimal.Zero, nil, 0, err
	}

	updated, err := poolTx.Credit(ctx, credit)
	if err != nil {
		return decimal.Zero, nil, 0, fmt.Errorf("failed to credit pool: %w", err)
	}

	credited, err := m.accountRepo.WithTx(tx).CreditIntermediaries(ctx, credit)
	if err != nil {
		return decimal.Zero, nil, 0, fmt.Errorf("failed to credit intermediaries: %w", err)
	}

	return current.Balance, updated, credited, nil
}
