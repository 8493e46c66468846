package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInsufficientFundsError(t *testing.T) {
	id := uuid.MustParse("7d3b7c2e-2f43-4e0c-9a57-8a7f3c1d9e01")
	err := InsufficientFundsError{
		AccountID: id,
		Balance:   decimal.RequireFromString("20"),
		Required:  decimal.RequireFromString("50"),
	}

	assert.Equal(t, "insufficient funds on account 7d3b7c2e-2f43-4e0c-9a57-8a7f3c1d9e01: balance 20.00, required 50.00", err.Error())
	assert.True(t, decimal.RequireFromString("30").Equal(err.Shortfall()))
}

func TestConcurrencyError_Unwrap(t *testing.T) {
	cause := errors.New("serialization failure")
	err := fmt.Errorf("settle sale: %w", ConcurrencyError{Attempts: 5, Err: cause})

	var concurrencyErr ConcurrencyError
	assert.True(t, errors.As(err, &concurrencyErr))
	assert.Equal(t, 5, concurrencyErr.Attempts)
	assert.ErrorIs(t, err, cause)
}

func TestIsBusinessError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", ValidationError{Field: "amount", Message: "must be greater than 0"}, true},
		{"wrapped not found", fmt.Errorf("lookup: %w", NotFoundError{Entity: "account", Key: "x"}), true},
		{"insufficient funds", InsufficientFundsError{}, true},
		{"insufficient pool funds", InsufficientPoolFundsError{}, true},
		{"arithmetic", ArithmeticError{Op: "debit", Value: "1e20"}, true},
		{"policy", PolicyError{Reason: "intermediaries cannot be adjusted"}, true},
		{"conflict", ConflictError{Entity: "sale", Field: "external_order_id", Value: "A1"}, true},
		{"concurrency is transient", ConcurrencyError{Attempts: 3}, false},
		{"infrastructure", errors.New("connection reset"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsBusinessError(tc.err))
		})
	}
}

func TestFailureReasonOf(t *testing.T) {
	assert.Equal(t, FailureReasonInsufficientFunds, FailureReasonOf(InsufficientFundsError{}))
	assert.Equal(t, FailureReasonInsufficientPoolFunds, FailureReasonOf(InsufficientPoolFundsError{}))
	assert.Equal(t, FailureReasonDuplicate, FailureReasonOf(ConflictError{}))
	assert.Equal(t, FailureReasonConcurrency, FailureReasonOf(ConcurrencyError{}))
	assert.Equal(t, FailureReasonInvalidRequest, FailureReasonOf(fmt.Errorf("x: %w", ValidationError{})))
	assert.Equal(t, FailureReasonUnknownError, FailureReasonOf(errors.New("boom")))
}
