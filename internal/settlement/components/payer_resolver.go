package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/settlement/service"
)

// PayerResolverImpl always reads the payer from the store. Identity data sent
// by the caller is never trusted.
type PayerResolverImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

func NewPayerResolver(accountRepo account.Repository, logger *slog.Logger) service.PayerResolver {
	return &PayerResolverImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

func (r *PayerResolverImpl) ResolvePayer(ctx context.Context, tx pgx.Tx, payerID *uuid.UUID) (*account.Account, error) {
	if payerID == nil {
		return nil, nil
	}
	return r.ResolveAccount(ctx, tx, *payerID)
}

// ResolveAccount locks the account row for the rest of tx.
func (r *PayerResolverImpl) ResolveAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*account.Account, error) {
	locked, err := r.accountRepo.WithTx(tx).LockForUpdate(ctx, id)
	if err != nil {
		var notFound shared.NotFoundError
		if errors.As(err, &notFound) {
			r.logger.Warn("Account not found for lock", "account_id", id.String())
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock account %s: %w", id.String(), err)
	}

	r.logger.Debug("Account locked", "account_id", locked.ID.String(), "role", locked.Role, "balance", locked.Balance.StringFixed(2))
	return locked, nil
}
