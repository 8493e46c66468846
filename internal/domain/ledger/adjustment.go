package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Adjustment is an immutable record of a manual credit or debit.
type Adjustment struct {
	ID                 int64                 `json:"transaction_id"`
	Account            account.Snapshot      `json:"account"`
	Amount             decimal.Decimal       `json:"amount"`
	Type               shared.AdjustmentType `json:"type"`
	PreviousBalance    decimal.Decimal       `json:"previous_balance"`
	NewBalance         decimal.Decimal       `json:"new_balance"`
	CounterpartID      *uuid.UUID            `json:"counterpart_id,omitempty"`
	CounterpartName    string                `json:"counterpart_name,omitempty"`
	CounterpartDebited bool                  `json:"counterpart_debited"`
	CorrelationID      string                `json:"correlation_id,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

// AdjustmentTypeFor tags positive amounts as credits and negative ones as debits.
func AdjustmentTypeFor(amount decimal.Decimal) shared.AdjustmentType {
	if amount.IsNegative() {
		return shared.AdjustmentTypeDebit
	}
	return shared.AdjustmentTypeCredit
}
