package ledger

import (
	"strconv"
	"time"

	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Entry is the query-side projection of a sale, adjustment or top-up. It is
// carried as the outbox payload and stored in the read model.
type Entry struct {
	EntryID          int64                 `json:"entry_id"`
	Kind             shared.EntryKind      `json:"kind"`
	AccountID        string                `json:"account_id,omitempty"`
	AccountHandle    string                `json:"account_handle,omitempty"`
	AccountName      string                `json:"account_name,omitempty"`
	AccountRole      string                `json:"account_role,omitempty"`
	ProductRef       string                `json:"product_ref,omitempty"`
	ProductName      string                `json:"product_name,omitempty"`
	Quantity         int                   `json:"quantity,omitempty"`
	Amount           decimal.Decimal       `json:"amount"`
	PoolAmount       decimal.Decimal       `json:"pool_amount"`
	BalanceAfter     decimal.NullDecimal   `json:"balance_after"`
	PoolBalanceAfter decimal.NullDecimal   `json:"pool_balance_after"`
	AdjustmentType   shared.AdjustmentType `json:"adjustment_type,omitempty"`
	CounterpartName  string                `json:"counterpart_name,omitempty"`
	Status           string                `json:"status,omitempty"`
	ExternalOrderID  string                `json:"external_order_id,omitempty"`
	Pins             []Pin                 `json:"pins,omitempty"`
	CorrelationID    string                `json:"correlation_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

// AggregateID is the outbox aggregate key of the entry.
func (e *Entry) AggregateID() string {
	return string(e.Kind) + ":" + strconv.FormatInt(e.EntryID, 10)
}

func EntryFromSale(s *Sale) *Entry {
	entry := &Entry{
		EntryID:          s.ID,
		Kind:             shared.EntryKindSale,
		ProductRef:       s.ProductRef,
		ProductName:      s.ProductName,
		Quantity:         s.Quantity,
		Amount:           s.AmountCharged,
		PoolAmount:       s.AmountForPool,
		BalanceAfter:     s.PayerBalanceAfter,
		PoolBalanceAfter: decimal.NewNullDecimal(s.PoolBalanceAfter),
		Status:           s.Status,
		ExternalOrderID:  s.ExternalOrderID,
		Pins:             s.Pins,
		CorrelationID:    s.CorrelationID,
		CreatedAt:        s.CreatedAt,
	}
	if s.Payer != nil {
		entry.AccountID = s.Payer.ID.String()
		entry.AccountHandle = s.Payer.Handle
		entry.AccountName = s.Payer.Name
		entry.AccountRole = string(s.Payer.Role)
	}
	return entry
}

func EntryFromAdjustment(a *Adjustment) *Entry {
	return &Entry{
		EntryID:         a.ID,
		Kind:            shared.EntryKindAdjustment,
		AccountID:       a.Account.ID.String(),
		AccountHandle:   a.Account.Handle,
		AccountName:     a.Account.Name,
		AccountRole:     string(a.Account.Role),
		Amount:          a.Amount,
		PoolAmount:      decimal.Zero,
		BalanceAfter:    decimal.NewNullDecimal(a.NewBalance),
		AdjustmentType:  a.Type,
		CounterpartName: a.CounterpartName,
		CorrelationID:   a.CorrelationID,
		CreatedAt:       a.CreatedAt,
	}
}

func EntryFromTopUp(t *TopUp) *Entry {
	entry := &Entry{
		EntryID:          t.ID,
		Kind:             shared.EntryKindTopUp,
		Amount:           t.Amount,
		PoolAmount:       t.Amount,
		PoolBalanceAfter: decimal.NewNullDecimal(t.NewBalance),
		CorrelationID:    t.CorrelationID,
		CreatedAt:        t.CreatedAt,
	}
	if t.RequestedBy != nil {
		entry.AccountID = t.RequestedBy.String()
	}
	return entry
}

// TokenConsumption is the outbox payload for a fulfillment token flip.
type TokenConsumption struct {
	SaleID     int64     `json:"sale_id"`
	TokenKey   string    `json:"token_key"`
	Consumed   bool      `json:"consumed"`
	ConsumedAt time.Time `json:"consumed_at"`
}

// KindSummary aggregates read-model entries of one kind.
type KindSummary struct {
	Kind            shared.EntryKind `json:"kind"`
	Count           int64            `json:"count"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	TotalPoolAmount decimal.Decimal  `json:"total_pool_amount"`
}
