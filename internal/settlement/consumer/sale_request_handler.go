package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/messaging/producers"
	"github.com/reseller-settlement/internal/settlement/service"
)

// SaleRequestHandler handles sale request messages consumed from Kafka
type SaleRequestHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewSaleRequestHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *SaleRequestHandler {
	return &SaleRequestHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage returns nil once the message reached a final outcome, including
// being parked in the DLQ. An error leaves the offset uncommitted.
func (h *SaleRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SaleRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal sale request from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("unmarshal failed: %s", err.Error()), err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received sale request for settlement",
		"request_id", request.RequestID.String(),
		"kind", request.Kind,
		"product_ref", request.ProductRef,
		"external_order_id", request.ExternalOrderID,
	)

	if err := h.processingService.ProcessSale(ctx, &request); err != nil {
		logger.Error("Failed to process sale request",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("processing sale request %s failed: %w", request.RequestID.String(), err)
	}

	return nil
}

func (h *SaleRequestHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("failed to unmarshal message value: %w", cause)
	}

	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ after unmarshal error",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to unmarshal message value: %w", cause)
	}
	return nil
}
