package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reseller-settlement/internal/api_gateway/middleware"
	"github.com/reseller-settlement/internal/api_gateway/service"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/platform/identity"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Register creates an account. The opening balance and tier follow the role policy.
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.Register(c.Request.Context(), service.RegisterAccountInput{
		Handle:   req.Handle,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     account.Role(req.Role),
		Tier:     account.Tier(req.Tier),
		Balance:  req.Balance,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// Me returns the caller's own account
func (h *AccountHandler) Me(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), caller.AccountID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Counts returns the number of accounts per role
func (h *AccountHandler) Counts(c *gin.Context) {
	counts, err := h.accountService.CountByRole(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRoleCounts(counts))
}

// requireCaller returns the authenticated caller, answering 401 when the route
// was mounted without RequireAuth.
func requireCaller(c *gin.Context) (*identity.Identity, bool) {
	caller, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return nil, false
	}
	return caller, true
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Handle:    acc.Handle,
		Name:      acc.Name,
		Email:     acc.Email,
		Role:      string(acc.Role),
		Tier:      string(acc.Tier),
		Balance:   acc.Balance,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapRoleCounts(counts map[account.Role]int64) map[string]int64 {
	out := make(map[string]int64, len(counts))
	for role, n := range counts {
		out[string(role)] = n
	}
	return out
}
