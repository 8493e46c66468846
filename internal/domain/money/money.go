// Package money holds the rounding and representability rules shared by every
// balance mutation. Balances are stored as NUMERIC(14,2).
package money

import (
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on every balance.
const Scale = 2

// MaxAmount is the largest magnitude a NUMERIC(14,2) column accepts.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Round2 rounds d half away from zero to two decimals and rejects values the
// store cannot represent. op names the operation for the resulting error.
func Round2(op string, d decimal.Decimal) (decimal.Decimal, error) {
	rounded := d.Round(Scale)
	if rounded.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, shared.ArithmeticError{Op: op, Value: d.String()}
	}
	return rounded, nil
}

// Debit returns balance - amount rounded, or an ArithmeticError.
func Debit(op string, balance, amount decimal.Decimal) (decimal.Decimal, error) {
	return Round2(op, balance.Sub(amount))
}

// Credit returns balance + amount rounded, or an ArithmeticError.
func Credit(op string, balance, amount decimal.Decimal) (decimal.Decimal, error) {
	return Round2(op, balance.Add(amount))
}

// Covers reports whether balance can pay amount without going negative.
func Covers(balance, amount decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(amount)
}
