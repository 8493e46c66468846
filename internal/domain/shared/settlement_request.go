package shared

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FulfillmentToken is a serial/key pair delivered to the payer with a sale
type FulfillmentToken struct {
	Serial string `json:"serial"`
	Key    string `json:"key"`
}

// SaleRequest is the normalized settlement request, submitted synchronously over
// HTTP or asynchronously through Kafka. Kind selects which amount fields apply.
type SaleRequest struct {
	RequestID          uuid.UUID          `json:"request_id"`
	Kind               SaleKind           `json:"kind"`
	PayerID            *uuid.UUID         `json:"payer_id,omitempty"` // nil for anonymous sales
	ProductRef         string             `json:"product_ref"`
	ProductName        string             `json:"product_name,omitempty"`
	Quantity           int                `json:"quantity"`
	Amount             decimal.Decimal    `json:"amount"`               // FLAT
	TotalPrice         decimal.Decimal    `json:"total_price"`          // TIERED, charged to the payer
	TotalOriginalPrice decimal.Decimal    `json:"total_original_price"` // TIERED, charged to the pool
	Status             string             `json:"status,omitempty"`
	ExternalOrderID    string             `json:"external_order_id,omitempty"`
	Tokens             []FulfillmentToken `json:"tokens,omitempty"`
	CorrelationID      string             `json:"correlation_id"`
	Timestamp          time.Time          `json:"timestamp"`
}

// AmountCharged is what the payer pays.
func (r *SaleRequest) AmountCharged() decimal.Decimal {
	if r.Kind == SaleKindTiered {
		return r.TotalPrice
	}
	return r.Amount
}

// AmountForPool is what the pool pays.
func (r *SaleRequest) AmountForPool() decimal.Decimal {
	if r.Kind == SaleKindTiered {
		return r.TotalOriginalPrice
	}
	return r.Amount
}

// moneyScale is the number of decimal places balances are stored with
const moneyScale = 2

func checkCents(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(moneyScale)) {
		return ValidationError{Field: field, Message: "must have at most 2 decimal places"}
	}
	return nil
}

// Validate checks the request shape. Pricing against the catalog happens separately.
func (r *SaleRequest) Validate() error {
	switch r.Kind {
	case SaleKindFlat:
		if !r.Amount.IsPositive() {
			return ValidationError{Field: "amount", Message: "must be greater than 0"}
		}
		if err := checkCents("amount", r.Amount); err != nil {
			return err
		}
	case SaleKindTiered:
		if !r.TotalPrice.IsPositive() {
			return ValidationError{Field: "total_price", Message: "must be greater than 0"}
		}
		if !r.TotalOriginalPrice.IsPositive() {
			return ValidationError{Field: "total_original_price", Message: "must be greater than 0"}
		}
		if err := checkCents("total_price", r.TotalPrice); err != nil {
			return err
		}
		if err := checkCents("total_original_price", r.TotalOriginalPrice); err != nil {
			return err
		}
		if r.TotalPrice.GreaterThan(r.TotalOriginalPrice) {
			return ValidationError{Field: "total_price", Message: "must not exceed total_original_price"}
		}
	default:
		return ValidationError{Field: "kind", Message: "must be FLAT or TIERED"}
	}

	if r.PayerID != nil && *r.PayerID == uuid.Nil {
		return ValidationError{Field: "payer_id", Message: "must be a valid account id"}
	}
	if strings.TrimSpace(r.ProductRef) == "" {
		return ValidationError{Field: "product_ref", Message: "is required"}
	}
	if r.Quantity < 1 {
		return ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	seen := make(map[string]struct{}, len(r.Tokens))
	for _, token := range r.Tokens {
		if strings.TrimSpace(token.Key) == "" {
			return ValidationError{Field: "tokens", Message: "every token needs a key"}
		}
		if _, dup := seen[token.Key]; dup {
			return ValidationError{Field: "tokens", Message: "duplicate token key " + token.Key}
		}
		seen[token.Key] = struct{}{}
	}
	return nil
}

// AdjustmentRequest credits (positive amount) or debits (negative amount) a
// client or administrator balance. CounterpartID names who funded it; AuthorizedBy
// is the account that requested it and is recorded when no counterpart is named.
type AdjustmentRequest struct {
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	CounterpartID *uuid.UUID      `json:"counterpart_id,omitempty"`
	AuthorizedBy  *uuid.UUID      `json:"authorized_by,omitempty"`
	CorrelationID string          `json:"correlation_id"`
}

func (r *AdjustmentRequest) Validate() error {
	if r.AccountID == uuid.Nil {
		return ValidationError{Field: "account_id", Message: "is required"}
	}
	if r.Amount.IsZero() {
		return ValidationError{Field: "amount", Message: "must not be zero"}
	}
	if err := checkCents("amount", r.Amount); err != nil {
		return err
	}
	if r.CounterpartID != nil && *r.CounterpartID == r.AccountID {
		return ValidationError{Field: "counterpart_id", Message: "must differ from account_id"}
	}
	return nil
}

// TopUpRequest adds funds to the pool and to every intermediary.
type TopUpRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	RequestedBy   *uuid.UUID      `json:"requested_by,omitempty"`
	CorrelationID string          `json:"correlation_id"`
}

func (r *TopUpRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be greater than 0"}
	}
	return checkCents("amount", r.Amount)
}

// TokenConsumptionRequest sets the consumed flag of a fulfillment token.
type TokenConsumptionRequest struct {
	PayerHandle   string `json:"payer_handle"`
	TokenKey      string `json:"token_key"`
	Consumed      bool   `json:"consumed"`
	CorrelationID string `json:"correlation_id"`
}

func (r *TokenConsumptionRequest) Validate() error {
	if strings.TrimSpace(r.PayerHandle) == "" {
		return ValidationError{Field: "payer_handle", Message: "is required"}
	}
	if strings.TrimSpace(r.TokenKey) == "" {
		return ValidationError{Field: "token_key", Message: "is required"}
	}
	return nil
}

// SaleResult is returned after a sale commits.
type SaleResult struct {
	SaleID               int64               `json:"sale_id"`
	PayerBalanceAfter    decimal.NullDecimal `json:"payer_balance_after"`
	PoolBalanceAfter     decimal.Decimal     `json:"pool_balance_after"`
	IntermediariesSynced int64               `json:"intermediaries_synced"`
}

// AdjustmentResult is returned after an adjustment commits.
type AdjustmentResult struct {
	TransactionID           int64               `json:"transaction_id"`
	AccountID               uuid.UUID           `json:"account_id"`
	Type                    AdjustmentType      `json:"type"`
	PreviousBalance         decimal.Decimal     `json:"previous_balance"`
	NewBalance              decimal.Decimal     `json:"new_balance"`
	CounterpartBalanceAfter decimal.NullDecimal `json:"counterpart_balance_after"`
}

// TopUpResult is returned after a pool top-up commits.
type TopUpResult struct {
	TopUpID                int64           `json:"top_up_id"`
	PreviousBalance        decimal.Decimal `json:"previous_balance"`
	NewBalance             decimal.Decimal `json:"new_balance"`
	IntermediariesCredited int64           `json:"intermediaries_credited"`
}

// TokenConsumptionResult reports the token state after MarkConsumed.
type TokenConsumptionResult struct {
	SaleID   int64  `json:"sale_id"`
	TokenKey string `json:"token_key"`
	Consumed bool   `json:"consumed"`
	Changed  bool   `json:"changed"`
}
