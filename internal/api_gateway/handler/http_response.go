package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reseller-settlement/internal/api_gateway/middleware"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a machine readable code; Details is set for rejected debits
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// MetaInfo describes the page returned by list endpoints
type MetaInfo struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
	TotalItems int64 `json:"total_items,omitempty"`
}

func newMeta(pagination PaginationParams, totalItems int64) *MetaInfo {
	perPage := int64(pagination.PerPage)
	return &MetaInfo{
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: int((totalItems + perPage - 1) / perPage),
		TotalItems: totalItems,
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func respondFailure(c *gin.Context, statusCode int, code, message string, details interface{}) {
	respond(c, statusCode, &Response{
		Error: &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, &Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, &Response{Data: data})
}

// RespondAccepted acknowledges work handed to the settlement processor
func RespondAccepted(c *gin.Context, data interface{}) {
	respond(c, http.StatusAccepted, &Response{Data: data})
}

// RespondPage sends one page of a listing together with its paging metadata
func RespondPage(c *gin.Context, data interface{}, pagination PaginationParams, totalItems int64) {
	respond(c, http.StatusOK, &Response{Data: data, Meta: newMeta(pagination, totalItems)})
}

func RespondBadRequest(c *gin.Context, message string) {
	respondFailure(c, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	respondFailure(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func RespondNotFound(c *gin.Context, message string) {
	respondFailure(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func RespondConflict(c *gin.Context, message string) {
	respondFailure(c, http.StatusConflict, "CONFLICT", message, nil)
}

// RespondUnprocessable rejects a well-formed request the ledger cannot apply
func RespondUnprocessable(c *gin.Context, code, message string, details interface{}) {
	respondFailure(c, http.StatusUnprocessableEntity, code, message, details)
}

// RespondServiceUnavailable asks the client to retry after the given number of seconds
func RespondServiceUnavailable(c *gin.Context, retryAfterSeconds int, message string) {
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	respondFailure(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, nil)
}

func RespondInternalError(c *gin.Context) {
	respondFailure(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred", nil)
}
