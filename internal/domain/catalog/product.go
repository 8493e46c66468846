// Package catalog reads product pricing from the catalog service. The settlement
// engine only uses it to check submitted prices; it never edits products.
package catalog

import (
	"context"

	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is a catalog item with its base and tier unit prices
type Product struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	PriceOro    decimal.Decimal `json:"price_oro"`
	PricePlata  decimal.Decimal `json:"price_plata"`
	PriceBronce decimal.Decimal `json:"price_bronce"`
	Available   bool            `json:"available"`
}

// UnitPrices lists every price a payer may legitimately be charged per unit.
func (p *Product) UnitPrices() []decimal.Decimal {
	prices := []decimal.Decimal{p.Price}
	for _, tier := range []decimal.Decimal{p.PriceOro, p.PricePlata, p.PriceBronce} {
		if tier.IsPositive() {
			prices = append(prices, tier)
		}
	}
	return prices
}

// CheckPricing verifies that req's amounts are consistent with the catalog:
// the pool pays quantity x base price and the payer pays quantity x one of the
// unit prices.
func (p *Product) CheckPricing(req *shared.SaleRequest) error {
	if !p.Available {
		return shared.ValidationError{Field: "product_ref", Message: "product " + p.Code + " is not available"}
	}

	quantity := decimal.NewFromInt(int64(req.Quantity))
	if !quantity.Mul(p.Price).Round(2).Equal(req.AmountForPool().Round(2)) {
		return shared.ValidationError{Field: "total_original_price", Message: "does not match the catalog price"}
	}

	charged := req.AmountCharged().Round(2)
	for _, unit := range p.UnitPrices() {
		if quantity.Mul(unit).Round(2).Equal(charged) {
			return nil
		}
	}
	return shared.ValidationError{Field: "total_price", Message: "does not match any catalog tier price"}
}

// Repository reads products by code
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Product, error)
}
