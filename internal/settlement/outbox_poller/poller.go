package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reseller-settlement/internal/config"
	"github.com/reseller-settlement/internal/domain/outbox"
	"github.com/reseller-settlement/internal/domain/shared"
)

// Poller drains pending outbox messages in id order
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
	projectionWait   time.Duration
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		projectionWait:   cfg.ProjectionWait,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"projection_wait", p.projectionWait.String(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	// Aggregates with a message still pending in this batch. Their later
	// messages wait for the next poll so each aggregate is delivered in order.
	held := make(map[string]struct{})

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger := p.logger.With("outbox_id", msg.ID, "aggregate_id", msg.AggregateID)

		if _, ok := held[msg.AggregateID]; ok {
			logger.Debug("Outbox message deferred behind an undelivered message of its aggregate")
			continue
		}

		err := p.publisher.Publish(ctx, msg)
		if err == nil {
			continue
		}

		var unpublishable ErrUnpublishable
		if errors.As(err, &unpublishable) {
			logger.Error("Outbox message cannot be published, marking as FAILED_TO_PUBLISH", "error", err)
			p.markFailed(ctx, logger, msg)
			continue
		}

		var pending ErrProjectionPending
		if errors.As(err, &pending) {
			waited := time.Since(msg.CreatedAt)
			if waited >= p.projectionWait {
				logger.Warn("Outbox message waited too long for its aggregate, marking as FAILED_TO_PUBLISH",
					"waited", waited.String(),
				)
				p.markFailed(ctx, logger, msg)
				continue
			}
			logger.Info("Outbox message waits for its aggregate to be projected", "waited", waited.String())
			held[msg.AggregateID] = struct{}{}
			continue
		}

		logger.Error("Failed to deliver outbox message", "current_attempts", msg.Attempts, "error", err)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			logger.Error("Failed to increment attempts for outbox message", "error", errInc)
			held[msg.AggregateID] = struct{}{}
			continue
		}

		if msg.Attempts+1 >= p.maxRetryAttempts {
			logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
				"attempts_made", msg.Attempts+1,
			)
			p.markFailed(ctx, logger, msg)
			continue
		}
		held[msg.AggregateID] = struct{}{}
	}
	return nil
}

func (p *Poller) markFailed(ctx context.Context, logger *slog.Logger, msg *outbox.Message) {
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH", "error", err)
	}
}
