package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reseller-settlement/internal/domain/shared"
)

// SaleProcessingService settles sale requests consumed from Kafka. Rejections
// are recorded and acknowledged; only infrastructure errors are returned.
type SaleProcessingService struct {
	engine          Engine
	validator       RequestValidator
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewSaleProcessingService(
	engine Engine,
	validator RequestValidator,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &SaleProcessingService{
		engine:          engine,
		validator:       validator,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

func (s *SaleProcessingService) ProcessSale(ctx context.Context, request *shared.SaleRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	duplicate, err := s.validator.IsDuplicate(ctx, request)
	if err != nil {
		return fmt.Errorf("duplicate check for request %s failed: %w", request.RequestID.String(), err)
	}
	if duplicate {
		logger.Info("Sale request already settled, skipping",
			"request_id", request.RequestID.String(),
			"external_order_id", request.ExternalOrderID,
		)
		return nil
	}

	result, err := s.engine.SettleSale(ctx, request)
	if err == nil {
		logger.Info("Asynchronous sale settled", "request_id", request.RequestID.String(), "sale_id", result.SaleID)
		return nil
	}

	if !isFinalRejection(err) {
		return fmt.Errorf("settling request %s failed: %w", request.RequestID.String(), err)
	}

	if shared.FailureReasonOf(err) == shared.FailureReasonDuplicate {
		logger.Info("Sale request lost a race with an identical order, skipping",
			"request_id", request.RequestID.String(),
			"external_order_id", request.ExternalOrderID,
		)
		return nil
	}

	if recordErr := s.failureRecorder.RecordFailure(ctx, request, err); recordErr != nil {
		logger.Error("Failed to record rejected sale request",
			"request_id", request.RequestID.String(),
			"error", recordErr,
			"rejection", err,
		)
		return fmt.Errorf("recording rejection of request %s failed: %w", request.RequestID.String(), recordErr)
	}
	return nil
}

// isFinalRejection reports whether redelivering the request cannot change the outcome.
// Exhausted retries are final too: the request is recorded instead of looping.
func isFinalRejection(err error) bool {
	if shared.IsBusinessError(err) {
		return true
	}
	var concurrencyErr shared.ConcurrencyError
	return errors.As(err, &concurrencyErr)
}
