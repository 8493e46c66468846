package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError reports malformed input rejected before any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// NotFoundError reports a missing account, pool, sale or token.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// InsufficientFundsError reports a payer or funding account that cannot cover a debit.
type InsufficientFundsError struct {
	AccountID uuid.UUID
	Balance   decimal.Decimal
	Required  decimal.Decimal
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: balance %s, required %s",
		e.AccountID, e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

// Shortfall is the amount missing to cover the debit.
func (e InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Balance)
}

// InsufficientPoolFundsError reports a pool balance below the original sale price.
type InsufficientPoolFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e InsufficientPoolFundsError) Error() string {
	return fmt.Sprintf("insufficient pool funds: balance %s, required %s",
		e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

// Shortfall is the amount missing to cover the debit.
func (e InsufficientPoolFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Balance)
}

// ArithmeticError reports a computed amount that is not representable as a balance.
type ArithmeticError struct {
	Op    string
	Value string
}

func (e ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic error in %s: %s is not a representable amount", e.Op, e.Value)
}

// ConcurrencyError reports a transaction that kept conflicting after the retry budget.
type ConcurrencyError struct {
	Attempts int
	Err      error
}

func (e ConcurrencyError) Error() string {
	return fmt.Sprintf("transaction aborted after %d conflicting attempts: %v", e.Attempts, e.Err)
}

func (e ConcurrencyError) Unwrap() error {
	return e.Err
}

// PolicyError reports an operation the role policy does not allow.
type PolicyError struct {
	Reason string
}

func (e PolicyError) Error() string {
	return "policy violation: " + e.Reason
}

// AuthError reports a caller that could not be identified or lacks the required role.
type AuthError struct {
	Reason string
}

func (e AuthError) Error() string {
	return "unauthorized: " + e.Reason
}

// ConflictError reports a uniqueness violation (handle, email, external order id).
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// IsBusinessError reports whether err is a deterministic rejection that a retry
// of the same request cannot fix.
func IsBusinessError(err error) bool {
	var (
		validationErr ValidationError
		notFoundErr   NotFoundError
		fundsErr      InsufficientFundsError
		poolFundsErr  InsufficientPoolFundsError
		arithmeticErr ArithmeticError
		policyErr     PolicyError
		conflictErr   ConflictError
		authErr       AuthError
	)
	return errors.As(err, &validationErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &fundsErr) ||
		errors.As(err, &poolFundsErr) ||
		errors.As(err, &arithmeticErr) ||
		errors.As(err, &policyErr) ||
		errors.As(err, &conflictErr) ||
		errors.As(err, &authErr)
}

// FailureReasonOf maps an error to the reason recorded for rejected requests.
func FailureReasonOf(err error) FailureReason {
	var (
		validationErr ValidationError
		notFoundErr   NotFoundError
		fundsErr      InsufficientFundsError
		poolFundsErr  InsufficientPoolFundsError
		arithmeticErr ArithmeticError
		policyErr     PolicyError
		conflictErr   ConflictError
		concurrentErr ConcurrencyError
	)
	switch {
	case errors.As(err, &validationErr):
		return FailureReasonInvalidRequest
	case errors.As(err, &notFoundErr):
		return FailureReasonNotFound
	case errors.As(err, &fundsErr):
		return FailureReasonInsufficientFunds
	case errors.As(err, &poolFundsErr):
		return FailureReasonInsufficientPoolFunds
	case errors.As(err, &arithmeticErr):
		return FailureReasonArithmetic
	case errors.As(err, &policyErr):
		return FailureReasonPolicy
	case errors.As(err, &conflictErr):
		return FailureReasonDuplicate
	case errors.As(err, &concurrentErr):
		return FailureReasonConcurrency
	default:
		return FailureReasonUnknownError
	}
}
