package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/reseller-settlement/internal/config"
	"github.com/reseller-settlement/internal/data/cache"
	"github.com/reseller-settlement/internal/data/mongo"
	"github.com/reseller-settlement/internal/data/postgres"
	"github.com/reseller-settlement/internal/logger"
	"github.com/reseller-settlement/internal/platform/messaging/consumers"
	"github.com/reseller-settlement/internal/platform/messaging/producers"
	"github.com/reseller-settlement/internal/platform/persistence"
	"github.com/reseller-settlement/internal/settlement/components"
	"github.com/reseller-settlement/internal/settlement/consumer"
	"github.com/reseller-settlement/internal/settlement/outbox_poller"
	"github.com/reseller-settlement/internal/settlement/service"
)

const drainTimeout = 30 * time.Second

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("settlement_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	if err := mongo.EnsureIndexes(appCtx, mongoDB.Database()); err != nil {
		log.Error("Failed to create MongoDB indexes", "error", err)
		os.Exit(1)
	}

	var cacheClient cache.Cmdable
	var redisDB *persistence.Redis
	if cfg.Catalog.CacheTTL > 0 {
		redisDB, err = persistence.NewRedis(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		cacheClient = redisDB.Client()
	}

	repos := components.Repositories{
		Accounts:    postgres.NewAccountRepository(log, postgresDB),
		Pool:        postgres.NewPoolRepository(log, postgresDB),
		Sales:       postgres.NewSaleRepository(log, postgresDB),
		Adjustments: postgres.NewAdjustmentRepository(log, postgresDB),
		TopUps:      postgres.NewTopUpRepository(log, postgresDB),
		Outbox:      postgres.NewOutboxRepository(log, postgresDB),
		Sequence:    postgres.NewSequenceRepository(log, postgresDB),
		Catalog: cache.NewProductCache(log,
			mongo.NewProductRepository(log, mongoDB.Database(), cfg.Catalog.Collection),
			cacheClient,
			cfg.Catalog.CacheTTL,
		),
	}
	readRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	failureRepo := mongo.NewFailureRepository(log, mongoDB.Database())

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// A nil producer means no DLQ topic is configured; keep the interface nil too
	var deadLetters producers.DeadLetterPublisher
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	eventProducer, err := producers.NewSettlementEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement event Kafka producer", "error", err)
		os.Exit(1)
	}

	txRunner := persistence.NewTxRunner(log, postgresDB.Pool(), &cfg.Settlement)
	engine := components.CreateEngine(txRunner, repos, log.With("component", "settlement_engine"))

	processingService := components.CreateProcessingService(
		engine,
		repos,
		failureRepo,
		cfg.WorkerPool.Size,
		log,
	)

	saleRequestHandler := consumer.NewSaleRequestHandler(log, processingService, deadLetters)

	eventPublisher := outbox_poller.NewEventPublisher(repos.Outbox, readRepo, eventProducer, log.With("component", "event_publisher"))
	poller := outbox_poller.NewPoller(&cfg.Outbox, repos.Outbox, eventPublisher, log.With("component", "outbox_poller"))

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SaleTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.SaleTopic, cfg.Kafka.ConsumerGroup, saleRequestHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	// Waits for in-flight settlements so no transaction is cut off mid-commit
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelShutdown()

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	var shutdownErr error
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			shutdownErr = err
		}
	}

	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing settlement event Kafka producer", "error", err)
		shutdownErr = err
	}

	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if redisDB != nil {
		if err := redisDB.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
			shutdownErr = err
		}
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Settlement Processor shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil {
		log.Error("Settlement Processor shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Settlement Processor shutdown completed successfully")
}
