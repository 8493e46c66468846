package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reseller-settlement/internal/api_gateway/middleware"
	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/domain/shared"
)

// LedgerHandler handles adjustments, pool top-ups and token consumption
type LedgerHandler struct {
	settlementService service.SettlementService
	logger            *slog.Logger
}

func NewLedgerHandler(logger *slog.Logger, settlementService service.SettlementService) *LedgerHandler {
	return &LedgerHandler{
		settlementService: settlementService,
		logger:            logger,
	}
}

// Adjust records a manual credit or debit on a client or administrator account
func (h *LedgerHandler) Adjust(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request := &shared.AdjustmentRequest{
		AccountID:     uuid.MustParse(req.AccountID),
		Amount:        req.Amount,
		AuthorizedBy:  &caller.AccountID,
		CorrelationID: middleware.GetCorrelationID(c),
	}
	if req.CounterpartID != "" {
		counterpart := uuid.MustParse(req.CounterpartID)
		request.CounterpartID = &counterpart
	}

	result, err := h.settlementService.Adjust(c.Request.Context(), request)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, result)
}

// TopUp adds funds to the pool and to every intermediary
func (h *LedgerHandler) TopUp(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req CreateTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	requestedBy := caller.AccountID
	result, err := h.settlementService.TopUp(c.Request.Context(), &shared.TopUpRequest{
		Amount:        req.Amount,
		RequestedBy:   &requestedBy,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, result)
}

// ConsumeToken flips the consumed flag of a fulfillment token
func (h *LedgerHandler) ConsumeToken(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req ConsumeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.settlementService.MarkConsumed(c.Request.Context(), caller, &shared.TokenConsumptionRequest{
		PayerHandle:   req.PayerHandle,
		TokenKey:      req.TokenKey,
		Consumed:      *req.Consumed,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, result)
}
