package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/platform/persistence"
)

// TopUpRepository implements ledger.TopUpRepository
type TopUpRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTopUpRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.TopUpRepository {
	return &TopUpRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TopUpRepository) WithTx(tx pgx.Tx) ledger.TopUpRepository {
	return &TopUpRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *TopUpRepository) Create(ctx context.Context, topUp *ledger.TopUp) error {
	query := `
		INSERT INTO pool_top_ups (id, amount, previous_balance, new_balance, intermediaries_credited, requested_by, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		topUp.ID,
		topUp.Amount,
		topUp.PreviousBalance,
		topUp.NewBalance,
		topUp.IntermediariesCredited,
		topUp.RequestedBy,
		topUp.CorrelationID,
		topUp.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create pool top-up", "top_up_id", topUp.ID, "error", err)
		return fmt.Errorf("failed to create pool top-up: %w", err)
	}

	return nil
}
