package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reseller-settlement/internal/api_gateway/handler"
	"github.com/reseller-settlement/internal/api_gateway/middleware"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/platform/identity"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

type handlers struct {
	accounts *handler.AccountHandler
	pool     *handler.PoolHandler
	sales    *handler.SaleHandler
	ledger   *handler.LedgerHandler
	reports  *handler.ReportHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	verifier identity.Verifier,
	h handlers,
	checks map[string]HealthCheck,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	admin := middleware.RequireRole(account.RoleAdministrator)
	oversight := middleware.RequireRole(account.RoleAdministrator, account.RoleMaster)

	v1 := r.Group("/api/v1", middleware.RequireAuth(verifier))
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", admin, h.accounts.Register)
			accounts.GET("/me", h.accounts.Me)
			accounts.GET("/counts", middleware.RequireRole(account.RoleMaster), h.accounts.Counts)
		}

		pool := v1.Group("/pool")
		{
			pool.POST("", admin, h.pool.Initialize)
			pool.GET("", oversight, h.pool.Get)
			pool.POST("/top-ups", admin, h.ledger.TopUp)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", h.sales.Settle)
			sales.POST("/async", h.sales.Submit)
			sales.GET("", oversight, h.sales.List)
			sales.GET("/mine", h.sales.ListMine)
			sales.GET("/:id", oversight, h.sales.GetByID)
			sales.GET("/payer/:handle", oversight, h.sales.ListByPayer)
		}

		v1.POST("/adjustments", admin, h.ledger.Adjust)
		v1.POST("/tokens/consume", h.ledger.ConsumeToken)

		reports := v1.Group("/reports", oversight)
		{
			reports.GET("/overview", h.reports.Overview)
			reports.GET("/summary", h.reports.Summary)
			reports.GET("/entries", h.reports.EntriesByRange)
			reports.GET("/accounts/:handle/entries", h.reports.EntriesByHandle)
		}
	}

	r.GET("/health", healthHandler(checks))
}

// healthHandler answers 503 when any dependency check fails
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results, "timestamp": time.Now().UTC()})
	}
}
