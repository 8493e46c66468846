package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/domain/pool"
)

// PoolHandler handles HTTP requests for the pool record
type PoolHandler struct {
	poolService service.PoolService
	logger      *slog.Logger
}

func NewPoolHandler(logger *slog.Logger, poolService service.PoolService) *PoolHandler {
	return &PoolHandler{
		poolService: poolService,
		logger:      logger,
	}
}

// Initialize creates the pool once. Later calls answer 409.
func (h *PoolHandler) Initialize(c *gin.Context) {
	var req InitializePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.poolService.Initialize(c.Request.Context(), req.Balance, req.APIKey, req.APISecret)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapPoolToResponse(p))
}

func (h *PoolHandler) Get(c *gin.Context) {
	p, err := h.poolService.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPoolToResponse(p))
}

func mapPoolToResponse(p *pool.Pool) PoolResponse {
	return PoolResponse{
		Balance:         p.Balance,
		MirroredBalance: p.MirroredBalance,
		InSync:          p.InSync(),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}
