package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/reseller-settlement/internal/domain/shared"
)

// Failure records an asynchronous sale request that was rejected.
type Failure struct {
	RequestID       uuid.UUID            `json:"request_id"`
	PayerID         *uuid.UUID           `json:"payer_id,omitempty"`
	ExternalOrderID string               `json:"external_order_id,omitempty"`
	ProductRef      string               `json:"product_ref"`
	Reason          shared.FailureReason `json:"reason"`
	Detail          string               `json:"detail"`
	CorrelationID   string               `json:"correlation_id,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// NewFailure captures why req was rejected.
func NewFailure(req *shared.SaleRequest, cause error) *Failure {
	return &Failure{
		RequestID:       req.RequestID,
		PayerID:         req.PayerID,
		ExternalOrderID: req.ExternalOrderID,
		ProductRef:      req.ProductRef,
		Reason:          shared.FailureReasonOf(cause),
		Detail:          cause.Error(),
		CorrelationID:   req.CorrelationID,
		CreatedAt:       time.Now().UTC(),
	}
}
