package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/reseller-settlement/internal/domain/shared"
)

// WorkerPoolProcessingService bounds the number of sales settled concurrently.
// The caller blocks until its request has been processed.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessSale submits the request to the worker pool and waits for the outcome.
func (s *WorkerPoolProcessingService) ProcessSale(ctx context.Context, request *shared.SaleRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting sale request to worker pool", "request_id", request.RequestID.String())

	resultChan := make(chan error, 1)
	requestCopy := *request

	if err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessSale(ctx, &requestCopy)
	}); err != nil {
		logger.Error("Failed to submit sale request to worker pool",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
