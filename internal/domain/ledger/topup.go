package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopUp records funds added to the pool and propagated to every intermediary.
type TopUp struct {
	ID                     int64           `json:"top_up_id"`
	Amount                 decimal.Decimal `json:"amount"`
	PreviousBalance        decimal.Decimal `json:"previous_balance"`
	NewBalance             decimal.Decimal `json:"new_balance"`
	IntermediariesCredited int64           `json:"intermediaries_credited"`
	RequestedBy            *uuid.UUID      `json:"requested_by,omitempty"`
	CorrelationID          string          `json:"correlation_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}
