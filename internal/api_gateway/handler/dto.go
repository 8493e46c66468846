package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterAccountRequest represents a request to register a new account
type RegisterAccountRequest struct {
	Handle   string          `json:"handle" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required"`
	Role     string          `json:"role" binding:"required,oneof=client seller master administrator"`
	Tier     string          `json:"tier,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string          `json:"id"`
	Handle    string          `json:"handle"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	Tier      string          `json:"tier"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// InitializePoolRequest represents a request to create the pool
type InitializePoolRequest struct {
	Balance   decimal.Decimal `json:"balance"`
	APIKey    string          `json:"api_key" binding:"required"`
	APISecret string          `json:"api_secret" binding:"required"`
}

// PoolResponse represents the pool in API responses. Credentials are never returned.
type PoolResponse struct {
	Balance         decimal.Decimal `json:"balance"`
	MirroredBalance decimal.Decimal `json:"mirrored_balance"`
	InSync          bool            `json:"in_sync"`
	UpdatedAt       string          `json:"updated_at"`
}

// TokenRequest is a fulfillment token reported with a sale
type TokenRequest struct {
	Serial string `json:"serial"`
	Key    string `json:"key" binding:"required"`
}

// CreateSaleRequest represents a flat or tiered sale
type CreateSaleRequest struct {
	Kind               string          `json:"kind" binding:"required,oneof=FLAT TIERED"`
	PayerID            string          `json:"payer_id,omitempty" binding:"omitempty,uuid"`
	ProductRef         string          `json:"product_ref" binding:"required"`
	ProductName        string          `json:"product_name,omitempty"`
	Quantity           int             `json:"quantity" binding:"required,min=1"`
	Amount             decimal.Decimal `json:"amount"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	TotalOriginalPrice decimal.Decimal `json:"total_original_price"`
	Status             string          `json:"status,omitempty"`
	ExternalOrderID    string          `json:"external_order_id,omitempty"`
	Tokens             []TokenRequest  `json:"tokens,omitempty" binding:"dive"`
}

// PinResponse represents a fulfillment token in API responses
type PinResponse struct {
	Serial     string `json:"serial"`
	Key        string `json:"key"`
	Consumed   bool   `json:"consumed"`
	ConsumedAt string `json:"consumed_at,omitempty"`
}

// SaleResponse represents a settled sale in API responses
type SaleResponse struct {
	SaleID            int64            `json:"sale_id"`
	Kind              string           `json:"kind"`
	PayerHandle       string           `json:"payer_handle,omitempty"`
	PayerName         string           `json:"payer_name,omitempty"`
	ProductRef        string           `json:"product_ref"`
	ProductName       string           `json:"product_name"`
	Quantity          int              `json:"quantity"`
	AmountCharged     decimal.Decimal  `json:"amount_charged"`
	AmountForPool     decimal.Decimal  `json:"amount_for_pool"`
	PayerBalanceAfter *decimal.Decimal `json:"payer_balance_after,omitempty"`
	PoolBalanceAfter  decimal.Decimal  `json:"pool_balance_after"`
	Status            string           `json:"status"`
	ExternalOrderID   string           `json:"external_order_id,omitempty"`
	Pins              []PinResponse    `json:"pins"`
	CreatedAt         string           `json:"created_at"`
}

// SaleResultResponse is returned after a synchronous settlement commits
type SaleResultResponse struct {
	SaleID               int64            `json:"sale_id"`
	PayerBalanceAfter    *decimal.Decimal `json:"payer_balance_after,omitempty"`
	PoolBalanceAfter     decimal.Decimal  `json:"pool_balance_after"`
	IntermediariesSynced int64            `json:"intermediaries_synced"`
}

// CreateAdjustmentRequest represents a manual credit (positive) or debit (negative)
type CreateAdjustmentRequest struct {
	AccountID     string          `json:"account_id" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	CounterpartID string          `json:"counterpart_id,omitempty" binding:"omitempty,uuid"`
}

// CreateTopUpRequest represents a pool top-up
type CreateTopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ConsumeTokenRequest sets the consumed flag of a fulfillment token
type ConsumeTokenRequest struct {
	PayerHandle string `json:"payer_handle" binding:"required"`
	TokenKey    string `json:"token_key" binding:"required"`
	Consumed    *bool  `json:"consumed" binding:"required"`
}

// EntryResponse represents a read-model ledger entry
type EntryResponse struct {
	EntryID          int64            `json:"entry_id"`
	Kind             string           `json:"kind"`
	AccountHandle    string           `json:"account_handle,omitempty"`
	AccountName      string           `json:"account_name,omitempty"`
	ProductRef       string           `json:"product_ref,omitempty"`
	ProductName      string           `json:"product_name,omitempty"`
	Quantity         int              `json:"quantity,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	PoolAmount       decimal.Decimal  `json:"pool_amount"`
	BalanceAfter     *decimal.Decimal `json:"balance_after,omitempty"`
	PoolBalanceAfter *decimal.Decimal `json:"pool_balance_after,omitempty"`
	AdjustmentType   string           `json:"adjustment_type,omitempty"`
	CounterpartName  string           `json:"counterpart_name,omitempty"`
	CreatedAt        string           `json:"created_at"`
}

// RangeParams represents a reporting time window
type RangeParams struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
}

// OverviewResponse represents the reporting dashboard figures
type OverviewResponse struct {
	From          string           `json:"from"`
	To            string           `json:"to"`
	Kinds         []KindResponse   `json:"kinds"`
	AccountCounts map[string]int64 `json:"account_counts"`
	Pool          *PoolResponse    `json:"pool,omitempty"`
}

// KindResponse aggregates entries of one kind
type KindResponse struct {
	Kind            string          `json:"kind"`
	Count           int64           `json:"count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalPoolAmount decimal.Decimal `json:"total_pool_amount"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
