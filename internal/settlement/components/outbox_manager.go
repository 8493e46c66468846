package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/reseller-settlement/internal/domain/outbox"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/settlement/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Enqueue writes the event in tx, so it is published only if the mutation commits.
func (m *OutboxManagerImpl) Enqueue(ctx context.Context, tx pgx.Tx, eventType shared.EventType, aggregateID string, payload any) error {
	message, err := outbox.NewMessage(eventType, aggregateID, payload)
	if err != nil {
		return fmt.Errorf("failed to create outbox message payload for %s: %w", aggregateID, err)
	}

	if err := m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		m.logger.Error("Failed to create outbox message",
			"event_type", eventType,
			"aggregate_id", aggregateID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for %s: %w", aggregateID, err)
	}

	m.logger.Debug("Outbox message created", "event_type", eventType, "aggregate_id", aggregateID, "outbox_id", message.ID)
	return nil
}
