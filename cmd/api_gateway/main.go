package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reseller-settlement/internal/api_gateway"
	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/config"
	"github.com/reseller-settlement/internal/data/cache"
	"github.com/reseller-settlement/internal/data/mongo"
	"github.com/reseller-settlement/internal/data/postgres"
	"github.com/reseller-settlement/internal/logger"
	"github.com/reseller-settlement/internal/platform/identity"
	"github.com/reseller-settlement/internal/platform/messaging/producers"
	"github.com/reseller-settlement/internal/platform/persistence"
	"github.com/reseller-settlement/internal/settlement/components"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Migrations run inside NewPostgresDB
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

	checks := map[string]api_gateway.HealthCheck{
		"postgres": postgresDB.Ping,
		"mongodb":  mongoDB.Ping,
	}

	// The catalog cache is optional; without it products are read from MongoDB directly
	var cacheClient cache.Cmdable
	var redisDB *persistence.Redis
	if cfg.Catalog.CacheTTL > 0 {
		redisDB, err = persistence.NewRedis(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		cacheClient = redisDB.Client()
		checks["redis"] = redisDB.Ping
	}

	saleProducer, err := producers.NewSaleRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sale request Kafka producer", "error", err)
		os.Exit(1)
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

	txRunner := persistence.NewTxRunner(log, postgresDB.Pool(), &cfg.Settlement)
	engine := components.CreateEngine(txRunner, repos, log.With("component", "settlement_engine"))

	services := api_gateway.Services{
		Accounts:   service.NewAccountService(log, txRunner, repos.Accounts, repos.Pool),
		Pool:       service.NewPoolService(log, repos.Pool),
		Settlement: service.NewSettlementService(log, engine, repos.Sales, repos.Accounts, saleProducer),
		Reports:    service.NewReportService(log, readRepo, repos.Accounts, repos.Pool),
	}

	server := api_gateway.NewServer(log, cfg, identity.NewJWTVerifier(&cfg.Auth), services, checks)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before closing the stores they use
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if err := saleProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
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

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
