package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
)

// retryAfterSeconds is suggested to clients when a transaction kept conflicting
const retryAfterSeconds = 1

// ShortfallDetails accompanies 422 responses for rejected debits
type ShortfallDetails struct {
	Balance   string `json:"balance"`
	Required  string `json:"required"`
	Shortfall string `json:"shortfall"`
}

// respondError maps domain errors to HTTP responses. Anything unrecognised is
// logged and hidden behind a 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validationErr  shared.ValidationError
		authErr        shared.AuthError
		policyErr      shared.PolicyError
		notFoundErr    shared.NotFoundError
		conflictErr    shared.ConflictError
		fundsErr       shared.InsufficientFundsError
		poolFundsErr   shared.InsufficientPoolFundsError
		arithmeticErr  shared.ArithmeticError
		concurrencyErr shared.ConcurrencyError
	)

	switch {
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Error())
	case errors.As(err, &authErr):
		RespondUnauthorized(c, authErr.Reason)
	case errors.Is(err, pool.ErrAlreadyInitialized):
		RespondConflict(c, "Pool is already initialized")
	case errors.As(err, &policyErr):
		RespondForbidden(c, policyErr.Reason)
	case errors.As(err, &notFoundErr):
		RespondNotFound(c, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		RespondConflict(c, conflictErr.Error())
	case errors.As(err, &fundsErr):
		RespondUnprocessable(c, string(shared.FailureReasonInsufficientFunds), "Insufficient funds", ShortfallDetails{
			Balance:   fundsErr.Balance.StringFixed(2),
			Required:  fundsErr.Required.StringFixed(2),
			Shortfall: fundsErr.Shortfall().StringFixed(2),
		})
	case errors.As(err, &poolFundsErr):
		RespondUnprocessable(c, string(shared.FailureReasonInsufficientPoolFunds), "Insufficient pool funds", ShortfallDetails{
			Balance:   poolFundsErr.Balance.StringFixed(2),
			Required:  poolFundsErr.Required.StringFixed(2),
			Shortfall: poolFundsErr.Shortfall().StringFixed(2),
		})
	case errors.As(err, &arithmeticErr):
		RespondUnprocessable(c, string(shared.FailureReasonArithmetic), arithmeticErr.Error(), nil)
	case errors.As(err, &concurrencyErr):
		logger.Warn("Settlement transaction kept conflicting", "attempts", concurrencyErr.Attempts, "error", err)
		RespondServiceUnavailable(c, retryAfterSeconds, "Too many concurrent updates, retry shortly")
	default:
		logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		RespondInternalError(c)
	}
}

