// Package policy decides how an account's balance is funded. Clients and
// administrators hold an independent prepaid balance; sellers and masters mirror
// the pool. Every branch on role in the settlement flow goes through here.
package policy

import (
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MinimumFloor is the lowest opening balance for an independent account.
var MinimumFloor = decimal.NewFromInt(100)

// IsPoolMirror reports whether the role's balance tracks the pool.
func IsPoolMirror(role account.Role) bool {
	return role.IsIntermediary()
}

// HoldsIndependentBalance reports whether the role is debited directly on a sale
// and may receive manual adjustments.
func HoldsIndependentBalance(role account.Role) bool {
	return role == account.RoleClient || role == account.RoleAdministrator
}

// InitialBalance returns the opening balance and tier for a new account.
// poolBalance is nil when no pool exists yet.
func InitialBalance(role account.Role, tier account.Tier, requested decimal.Decimal, poolBalance *decimal.Decimal) (decimal.Decimal, account.Tier, error) {
	switch {
	case IsPoolMirror(role):
		if poolBalance == nil {
			return decimal.Zero, "", shared.PolicyError{Reason: "intermediary accounts require an initialized pool"}
		}
		return *poolBalance, account.TierUnlimited, nil

	case role == account.RoleClient:
		if !tier.IsClientTier() {
			return decimal.Zero, "", shared.ValidationError{Field: "tier", Message: "must be diamante, oro or bronce"}
		}
		balance, err := openingBalance(requested)
		if err != nil {
			return decimal.Zero, "", err
		}
		return balance, tier, nil

	case role == account.RoleAdministrator:
		balance, err := openingBalance(requested)
		if err != nil {
			return decimal.Zero, "", err
		}
		return balance, account.TierUnlimited, nil
	}

	return decimal.Zero, "", shared.ValidationError{Field: "role", Message: "is not a known role"}
}

func openingBalance(requested decimal.Decimal) (decimal.Decimal, error) {
	if requested.LessThan(MinimumFloor) {
		return decimal.Zero, shared.ValidationError{Field: "balance", Message: "must be at least " + MinimumFloor.StringFixed(2)}
	}
	return requested.Round(2), nil
}
