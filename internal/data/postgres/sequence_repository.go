package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reseller-settlement/internal/domain/sequence"
	"github.com/reseller-settlement/internal/platform/persistence"
)

// SequenceRepository hands out ledger ids from the counters table. Each call
// commits on its own, so ids are never reused even when the caller rolls back.
type SequenceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSequenceRepository(logger *slog.Logger, db *persistence.PostgresDB) sequence.Generator {
	return &SequenceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Next atomically increments the named counter and returns the new value.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO counters (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`

	var value int64
	if err := r.querier.QueryRow(ctx, query, name).Scan(&value); err != nil {
		r.logger.Error("Failed to allocate sequence value", "counter", name, "error", err)
		return 0, fmt.Errorf("failed to allocate sequence value: %w", err)
	}

	return value, nil
}
