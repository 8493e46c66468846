package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTieredSale() *SaleRequest {
	payer := uuid.New()
	return &SaleRequest{
		RequestID:          uuid.New(),
		Kind:               SaleKindTiered,
		PayerID:            &payer,
		ProductRef:         "FF-100",
		Quantity:           2,
		TotalPrice:         decimal.RequireFromString("40"),
		TotalOriginalPrice: decimal.RequireFromString("50"),
		Tokens:             []FulfillmentToken{{Serial: "S1", Key: "K1"}, {Serial: "S2", Key: "K2"}},
	}
}

func TestSaleRequest_Amounts(t *testing.T) {
	tiered := validTieredSale()
	assert.True(t, decimal.RequireFromString("40").Equal(tiered.AmountCharged()))
	assert.True(t, decimal.RequireFromString("50").Equal(tiered.AmountForPool()))

	flat := &SaleRequest{Kind: SaleKindFlat, Amount: decimal.RequireFromString("12.5")}
	assert.True(t, flat.AmountCharged().Equal(flat.AmountForPool()))
	assert.True(t, decimal.RequireFromString("12.5").Equal(flat.AmountCharged()))
}

func TestSaleRequest_Validate(t *testing.T) {
	nilPayer := uuid.Nil

	testCases := []struct {
		name      string
		mutate    func(r *SaleRequest)
		wantField string
	}{
		{"valid tiered", func(r *SaleRequest) {}, ""},
		{"valid flat anonymous", func(r *SaleRequest) {
			r.Kind = SaleKindFlat
			r.Amount = decimal.RequireFromString("10")
			r.PayerID = nil
		}, ""},
		{"unknown kind", func(r *SaleRequest) { r.Kind = "BARTER" }, "kind"},
		{"flat without amount", func(r *SaleRequest) { r.Kind = SaleKindFlat }, "amount"},
		{"tiered negative charge", func(r *SaleRequest) { r.TotalPrice = decimal.RequireFromString("-1") }, "total_price"},
		{"tiered charge above original", func(r *SaleRequest) { r.TotalPrice = decimal.RequireFromString("60") }, "total_price"},
		{"tiered missing original", func(r *SaleRequest) { r.TotalOriginalPrice = decimal.Zero }, "total_original_price"},
		{"trailing zeros beyond cents", func(r *SaleRequest) { r.TotalPrice = decimal.RequireFromString("40.000") }, ""},
		{"tiered charge with fractional cents", func(r *SaleRequest) { r.TotalPrice = decimal.RequireFromString("39.999") }, "total_price"},
		{"tiered original with fractional cents", func(r *SaleRequest) { r.TotalOriginalPrice = decimal.RequireFromString("50.005") }, "total_original_price"},
		{"flat with fractional cents", func(r *SaleRequest) {
			r.Kind = SaleKindFlat
			r.Amount = decimal.RequireFromString("10.001")
		}, "amount"},
		{"nil payer id", func(r *SaleRequest) { r.PayerID = &nilPayer }, "payer_id"},
		{"missing product", func(r *SaleRequest) { r.ProductRef = "  " }, "product_ref"},
		{"zero quantity", func(r *SaleRequest) { r.Quantity = 0 }, "quantity"},
		{"empty token key", func(r *SaleRequest) { r.Tokens = append(r.Tokens, FulfillmentToken{Serial: "S3"}) }, "tokens"},
		{"duplicate token key", func(r *SaleRequest) { r.Tokens[1].Key = "K1" }, "tokens"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validTieredSale()
			tc.mutate(req)

			err := req.Validate()
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var validationErr ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}

func TestAdjustmentRequest_Validate(t *testing.T) {
	account := uuid.New()

	err := (&AdjustmentRequest{AccountID: account, Amount: decimal.RequireFromString("-25")}).Validate()
	assert.NoError(t, err)

	err = (&AdjustmentRequest{AccountID: account}).Validate()
	assert.ErrorAs(t, err, &ValidationError{})

	err = (&AdjustmentRequest{Amount: decimal.RequireFromString("10")}).Validate()
	assert.ErrorAs(t, err, &ValidationError{})

	err = (&AdjustmentRequest{AccountID: account, Amount: decimal.RequireFromString("10"), CounterpartID: &account}).Validate()
	assert.ErrorAs(t, err, &ValidationError{})

	err = (&AdjustmentRequest{AccountID: account, Amount: decimal.RequireFromString("0.125")}).Validate()
	assert.ErrorAs(t, err, &ValidationError{})
}

func TestTopUpRequest_Validate(t *testing.T) {
	assert.NoError(t, (&TopUpRequest{Amount: decimal.RequireFromString("200")}).Validate())
	assert.ErrorAs(t, (&TopUpRequest{Amount: decimal.Zero}).Validate(), &ValidationError{})
	assert.ErrorAs(t, (&TopUpRequest{Amount: decimal.RequireFromString("-5")}).Validate(), &ValidationError{})
	assert.ErrorAs(t, (&TopUpRequest{Amount: decimal.RequireFromString("5.555")}).Validate(), &ValidationError{})
}

func TestTokenConsumptionRequest_Validate(t *testing.T) {
	assert.NoError(t, (&TokenConsumptionRequest{PayerHandle: "ana", TokenKey: "K1", Consumed: true}).Validate())
	assert.ErrorAs(t, (&TokenConsumptionRequest{TokenKey: "K1"}).Validate(), &ValidationError{})
	assert.ErrorAs(t, (&TokenConsumptionRequest{PayerHandle: "ana"}).Validate(), &ValidationError{})
}
