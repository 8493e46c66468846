package components

import (
	"context"
	"log/slog"

	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/settlement/service"
)

type FailureRecorderImpl struct {
	failureRepo ledger.FailureRepository
	logger      *slog.Logger
}

func NewFailureRecorder(failureRepo ledger.FailureRepository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		failureRepo: failureRepo,
		logger:      logger,
	}
}

// RecordFailure stores why request was rejected. Recording the same request twice is harmless.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.SaleRequest, cause error) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	failure := ledger.NewFailure(request, cause)
	logger.Info("Recording rejected sale request",
		"request_id", request.RequestID.String(),
		"reason", failure.Reason,
		"detail", failure.Detail,
	)

	if err := r.failureRepo.Create(ctx, failure); err != nil {
		logger.Error("Failed to record rejected sale request", "request_id", request.RequestID.String(), "error", err)
		return err
	}
	return nil
}
