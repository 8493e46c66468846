package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/domain/ledger"
)

// ReportHandler serves reports from the ledger read model
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
}

func NewReportHandler(logger *slog.Logger, reportService service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// EntriesByHandle lists the ledger entries of one account, newest first
func (h *ReportHandler) EntriesByHandle(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.reportService.EntriesByHandle(c.Request.Context(), c.Param("handle"), pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondPage(c, mapEntries(entries), pagination, total)
}

// EntriesByRange lists the ledger entries created within [from, to)
func (h *ReportHandler) EntriesByRange(c *gin.Context) {
	window, pagination, ok := bindWindow(c, true)
	if !ok {
		return
	}

	entries, err := h.reportService.EntriesByRange(c.Request.Context(), window.From, window.To, pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEntries(entries))
}

func (h *ReportHandler) Summary(c *gin.Context) {
	window, _, ok := bindWindow(c, false)
	if !ok {
		return
	}

	kinds, err := h.reportService.Summary(c.Request.Context(), window.From, window.To)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapKinds(kinds))
}

func (h *ReportHandler) Overview(c *gin.Context) {
	window, _, ok := bindWindow(c, false)
	if !ok {
		return
	}

	overview, err := h.reportService.Overview(c.Request.Context(), window.From, window.To)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := OverviewResponse{
		From:          overview.From.Format(time.RFC3339),
		To:            overview.To.Format(time.RFC3339),
		Kinds:         mapKinds(overview.Kinds),
		AccountCounts: mapRoleCounts(overview.AccountCounts),
	}
	if overview.Pool != nil {
		p := mapPoolToResponse(overview.Pool)
		response.Pool = &p
	}
	RespondOK(c, response)
}

func bindWindow(c *gin.Context, paginated bool) (RangeParams, PaginationParams, bool) {
	var window RangeParams
	if err := c.ShouldBindQuery(&window); err != nil {
		RespondBadRequest(c, "Invalid range: from and to must be RFC3339 timestamps")
		return window, PaginationParams{}, false
	}

	var pagination PaginationParams
	if paginated {
		if err := c.ShouldBindQuery(&pagination); err != nil {
			RespondBadRequest(c, "Invalid pagination parameters")
			return window, pagination, false
		}
	}
	return window, pagination, true
}

func mapEntries(entries []*ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			EntryID:          e.EntryID,
			Kind:             string(e.Kind),
			AccountHandle:    e.AccountHandle,
			AccountName:      e.AccountName,
			ProductRef:       e.ProductRef,
			ProductName:      e.ProductName,
			Quantity:         e.Quantity,
			Amount:           e.Amount,
			PoolAmount:       e.PoolAmount,
			BalanceAfter:     nullDecimalPtr(e.BalanceAfter),
			PoolBalanceAfter: nullDecimalPtr(e.PoolBalanceAfter),
			AdjustmentType:   string(e.AdjustmentType),
			CounterpartName:  e.CounterpartName,
			CreatedAt:        e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func mapKinds(kinds []*ledger.KindSummary) []KindResponse {
	out := make([]KindResponse, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, KindResponse{
			Kind:            string(k.Kind),
			Count:           k.Count,
			TotalAmount:     k.TotalAmount,
			TotalPoolAmount: k.TotalPoolAmount,
		})
	}
	return out
}
