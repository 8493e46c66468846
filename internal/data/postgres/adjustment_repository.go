package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/platform/persistence"
)

// AdjustmentRepository implements ledger.AdjustmentRepository
type AdjustmentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAdjustmentRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.AdjustmentRepository {
	return &AdjustmentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *AdjustmentRepository) WithTx(tx pgx.Tx) ledger.AdjustmentRepository {
	return &AdjustmentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *AdjustmentRepository) Create(ctx context.Context, adj *ledger.Adjustment) error {
	query := `
		INSERT INTO adjustments (
			id, account_id, account_handle, account_name, account_email, account_role, account_tier,
			amount, type, previous_balance, new_balance,
			counterpart_id, counterpart_name, counterpart_debited, correlation_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		adj.ID,
		adj.Account.ID,
		adj.Account.Handle,
		adj.Account.Name,
		adj.Account.Email,
		adj.Account.Role,
		adj.Account.Tier,
		adj.Amount,
		adj.Type,
		adj.PreviousBalance,
		adj.NewBalance,
		adj.CounterpartID,
		adj.CounterpartName,
		adj.CounterpartDebited,
		adj.CorrelationID,
		adj.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create adjustment",
			"transaction_id", adj.ID,
			"account_id", adj.Account.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create adjustment: %w", err)
	}

	return nil
}
