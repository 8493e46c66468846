package components

import (
	"log/slog"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/catalog"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/outbox"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/sequence"
	"github.com/reseller-settlement/internal/settlement/service"
)

// Repositories groups the stores the settlement engine writes to
type Repositories struct {
	Accounts    account.Repository
	Pool        pool.Repository
	Sales       ledger.SaleRepository
	Adjustments ledger.AdjustmentRepository
	TopUps      ledger.TopUpRepository
	Outbox      outbox.Repository
	Sequence    sequence.Generator
	Catalog     catalog.Repository
}

// CreateEngine wires the settlement engine with all its components.
func CreateEngine(txRunner service.TxRunner, repos Repositories, logger *slog.Logger) *service.SettlementEngine {
	return service.NewSettlementEngine(
		txRunner,
		repos.Sequence,
		NewRequestValidator(repos.Catalog, repos.Sales, logger),
		NewPayerResolver(repos.Accounts, logger),
		NewBalanceManager(repos.Accounts, repos.Pool, logger),
		NewLedgerRecorder(repos.Sales, repos.Adjustments, repos.TopUps, NewOutboxManager(repos.Outbox, logger), logger),
		logger,
	)
}

// CreateProcessingService wires asynchronous sale processing behind a worker pool.
// It falls back to unbounded processing if the pool cannot be created.
func CreateProcessingService(
	engine service.Engine,
	repos Repositories,
	failureRepo ledger.FailureRepository,
	poolSize int,
	logger *slog.Logger,
) service.ProcessingService {
	baseService := service.NewSaleProcessingService(
		engine,
		NewRequestValidator(repos.Catalog, repos.Sales, logger),
		NewFailureRecorder(failureRepo, logger),
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{Size: poolSize},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", poolSize)
	return workerPoolService
}
