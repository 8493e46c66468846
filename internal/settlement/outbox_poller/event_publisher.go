package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/outbox"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message: it projects the event into the
// read model, fans it out to the event topic and marks it PROCESSED.
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// ErrUnpublishable marks a message that no retry can deliver.
type ErrUnpublishable struct {
	OutboxID int64
	Reason   string
}

func (e ErrUnpublishable) Error() string {
	return fmt.Sprintf("outbox message %d cannot be published: %s", e.OutboxID, e.Reason)
}

// ErrProjectionPending marks a message whose aggregate has not reached the read
// model yet. It is retried without spending a delivery attempt.
type ErrProjectionPending struct {
	OutboxID    int64
	AggregateID string
}

func (e ErrProjectionPending) Error() string {
	return fmt.Sprintf("outbox message %d waits for %s to be projected", e.OutboxID, e.AggregateID)
}

// SettlementEvent is the envelope written to the settlement event topic
type SettlementEvent struct {
	OutboxID    int64            `json:"outbox_id"`
	EventType   shared.EventType `json:"event_type"`
	AggregateID string           `json:"aggregate_id"`
	Payload     any              `json:"payload"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	readRepo   ledger.ReadRepository
	producer   producers.MessagePublisher // nil disables the Kafka fan-out
	logger     *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	readRepo ledger.ReadRepository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		readRepo:   readRepo,
		producer:   producer,
		logger:     logger,
	}
}

func (p *EventPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "event_type", message.EventType, "aggregate_id", message.AggregateID)

	payload, correlationID, err := p.project(ctx, message)
	if err != nil {
		return err
	}
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	// Projection is idempotent, so a publish failure after it only repeats work.
	if p.producer != nil {
		event := SettlementEvent{
			OutboxID:    message.ID,
			EventType:   message.EventType,
			AggregateID: message.AggregateID,
			Payload:     payload,
			OccurredAt:  message.CreatedAt,
		}
		if err := p.producer.Publish(ctx, message.AggregateID, event); err != nil {
			return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message as PROCESSED", "error", err)
		return fmt.Errorf("outbox message %d delivered, but failed to mark it PROCESSED: %w", message.ID, err)
	}

	logger.Info("Outbox message delivered")
	return nil
}

// project applies the event to the read model and returns the decoded payload.
func (p *EventPublisherImpl) project(ctx context.Context, message *outbox.Message) (any, string, error) {
	switch message.EventType {
	case shared.EventTypeSaleSettled, shared.EventTypeAdjustmentRecorded, shared.EventTypePoolToppedUp:
		var entry ledger.Entry
		if err := message.DecodePayload(&entry); err != nil {
			return nil, "", ErrUnpublishable{OutboxID: message.ID, Reason: "payload is not a ledger entry: " + err.Error()}
		}
		if err := p.readRepo.Upsert(ctx, &entry); err != nil {
			return nil, "", fmt.Errorf("failed to project entry %s: %w", entry.AggregateID(), err)
		}
		return &entry, entry.CorrelationID, nil

	case shared.EventTypeTokenConsumed:
		var consumption ledger.TokenConsumption
		if err := message.DecodePayload(&consumption); err != nil {
			return nil, "", ErrUnpublishable{OutboxID: message.ID, Reason: "payload is not a token consumption: " + err.Error()}
		}
		if err := p.readRepo.SetTokenConsumed(ctx, &consumption); err != nil {
			var notFound shared.NotFoundError
			if errors.As(err, &notFound) {
				return nil, "", ErrProjectionPending{OutboxID: message.ID, AggregateID: message.AggregateID}
			}
			return nil, "", fmt.Errorf("failed to project consumption of token %s: %w", consumption.TokenKey, err)
		}
		return &consumption, "", nil
	}

	return nil, "", ErrUnpublishable{OutboxID: message.ID, Reason: "unknown event type " + string(message.EventType)}
}
