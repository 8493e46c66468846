package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reseller-settlement/internal/api_gateway/middleware"
	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
)

// SaleHandler handles HTTP requests for sales
type SaleHandler struct {
	settlementService service.SettlementService
	accountService    service.AccountService
	logger            *slog.Logger
}

func NewSaleHandler(logger *slog.Logger, settlementService service.SettlementService, accountService service.AccountService) *SaleHandler {
	return &SaleHandler{
		settlementService: settlementService,
		accountService:    accountService,
		logger:            logger,
	}
}

// Settle settles a sale synchronously and answers with the committed balances
func (h *SaleHandler) Settle(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	request, ok := h.bindSale(c)
	if !ok {
		return
	}

	result, err := h.settlementService.SettleSale(c.Request.Context(), caller, request)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, SaleResultResponse{
		SaleID:               result.SaleID,
		PayerBalanceAfter:    nullDecimalPtr(result.PayerBalanceAfter),
		PoolBalanceAfter:     result.PoolBalanceAfter,
		IntermediariesSynced: result.IntermediariesSynced,
	})
}

// Submit queues a sale for asynchronous settlement
func (h *SaleHandler) Submit(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	request, ok := h.bindSale(c)
	if !ok {
		return
	}

	requestID, err := h.settlementService.SubmitSale(c.Request.Context(), caller, request)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondAccepted(c, gin.H{
		"request_id": requestID,
		"status":     "PENDING",
	})
}

func (h *SaleHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id < 1 {
		RespondBadRequest(c, "Invalid sale ID")
		return
	}

	sale, err := h.settlementService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapSaleToResponse(sale))
}

// List returns the sales history newest first
func (h *SaleHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	sales, total, err := h.settlementService.ListSales(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondPage(c, mapSales(sales), pagination, total)
}

// ListByPayer returns the sales charged to the account with the given handle
func (h *SaleHandler) ListByPayer(c *gin.Context) {
	h.listByPayer(c, c.Param("handle"))
}

// ListMine returns the caller's own sales
func (h *SaleHandler) ListMine(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), caller.AccountID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.listByPayer(c, acc.Handle)
}

func (h *SaleHandler) listByPayer(c *gin.Context, handle string) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	sales, err := h.settlementService.ListSalesByPayer(c.Request.Context(), handle, pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapSales(sales))
}

func (h *SaleHandler) bindSale(c *gin.Context) (*shared.SaleRequest, bool) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	request := &shared.SaleRequest{
		RequestID:          uuid.New(),
		Kind:               shared.SaleKind(req.Kind),
		ProductRef:         req.ProductRef,
		ProductName:        req.ProductName,
		Quantity:           req.Quantity,
		Amount:             req.Amount,
		TotalPrice:         req.TotalPrice,
		TotalOriginalPrice: req.TotalOriginalPrice,
		Status:             req.Status,
		ExternalOrderID:    req.ExternalOrderID,
		CorrelationID:      middleware.GetCorrelationID(c),
		Timestamp:          time.Now().UTC(),
	}
	if req.PayerID != "" {
		payerID, err := uuid.Parse(req.PayerID)
		if err != nil {
			RespondBadRequest(c, "Invalid payer ID")
			return nil, false
		}
		request.PayerID = &payerID
	}
	for _, token := range req.Tokens {
		request.Tokens = append(request.Tokens, shared.FulfillmentToken{Serial: token.Serial, Key: token.Key})
	}
	return request, true
}

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}

func mapSales(sales []*ledger.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		out = append(out, mapSaleToResponse(sale))
	}
	return out
}

func mapSaleToResponse(sale *ledger.Sale) SaleResponse {
	response := SaleResponse{
		SaleID:            sale.ID,
		Kind:              string(sale.Kind),
		ProductRef:        sale.ProductRef,
		ProductName:       sale.ProductName,
		Quantity:          sale.Quantity,
		AmountCharged:     sale.AmountCharged,
		AmountForPool:     sale.AmountForPool,
		PayerBalanceAfter: nullDecimalPtr(sale.PayerBalanceAfter),
		PoolBalanceAfter:  sale.PoolBalanceAfter,
		Status:            sale.Status,
		ExternalOrderID:   sale.ExternalOrderID,
		Pins:              make([]PinResponse, 0, len(sale.Pins)),
		CreatedAt:         sale.CreatedAt.Format(time.RFC3339),
	}
	if sale.Payer != nil {
		response.PayerHandle = sale.Payer.Handle
		response.PayerName = sale.Payer.Name
	}
	for _, pin := range sale.Pins {
		p := PinResponse{Serial: pin.Serial, Key: pin.Key, Consumed: pin.Consumed}
		if pin.ConsumedAt != nil {
			p.ConsumedAt = pin.ConsumedAt.Format(time.RFC3339)
		}
		response.Pins = append(response.Pins, p)
	}
	return response
}
