package ledger

import (
	"time"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Pin is a fulfillment token delivered with a sale. Consumed is the only
// field of a committed sale that may change, and only from false to true.
type Pin struct {
	Serial     string     `json:"serial"`
	Key        string     `json:"key"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Sale is an immutable record of a settled sale.
type Sale struct {
	ID                int64               `json:"sale_id"`
	Kind              shared.SaleKind     `json:"kind"`
	Payer             *account.Snapshot   `json:"payer,omitempty"` // nil for anonymous sales
	Quantity          int                 `json:"quantity"`
	ProductRef        string              `json:"product_ref"`
	ProductName       string              `json:"product_name"`
	AmountCharged     decimal.Decimal     `json:"amount_charged"`
	AmountForPool     decimal.Decimal     `json:"amount_for_pool"`
	PayerBalanceAfter decimal.NullDecimal `json:"payer_balance_after"`
	PoolBalanceAfter  decimal.Decimal     `json:"pool_balance_after"`
	Status            string              `json:"status"`
	ExternalOrderID   string              `json:"external_order_id,omitempty"`
	Pins              []Pin               `json:"pins"`
	CorrelationID     string              `json:"correlation_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// NewSale builds the ledger record for a settled request. payer is the account
// as resolved inside the settlement transaction, nil for anonymous sales.
func NewSale(id int64, req *shared.SaleRequest, payer *account.Account, payerBalanceAfter decimal.NullDecimal, poolBalanceAfter decimal.Decimal) *Sale {
	sale := &Sale{
		ID:                id,
		Kind:              req.Kind,
		Quantity:          req.Quantity,
		ProductRef:        req.ProductRef,
		ProductName:       req.ProductName,
		AmountCharged:     req.AmountCharged(),
		AmountForPool:     req.AmountForPool(),
		PayerBalanceAfter: payerBalanceAfter,
		PoolBalanceAfter:  poolBalanceAfter,
		Status:            req.Status,
		ExternalOrderID:   req.ExternalOrderID,
		Pins:              make([]Pin, 0, len(req.Tokens)),
		CorrelationID:     req.CorrelationID,
		CreatedAt:         time.Now().UTC(),
	}
	if sale.Status == "" {
		sale.Status = shared.SaleStatusCompleted
	}
	if payer != nil {
		snapshot := payer.Snapshot()
		sale.Payer = &snapshot
	}
	for _, token := range req.Tokens {
		sale.Pins = append(sale.Pins, Pin{Serial: token.Serial, Key: token.Key})
	}
	return sale
}

// PayerHandle returns the handle snapshot, empty for anonymous sales.
func (s *Sale) PayerHandle() string {
	if s.Payer == nil {
		return ""
	}
	return s.Payer.Handle
}

// PinRef locates a fulfillment token inside a committed sale.
type PinRef struct {
	SaleID   int64
	Position int
	TokenKey string
	Consumed bool
}
