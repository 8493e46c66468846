package account

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Role determines how an account's balance is funded
type Role string

const (
	RoleClient        Role = "client"
	RoleSeller        Role = "seller" // intermediary
	RoleMaster        Role = "master" // intermediary, may also read platform-wide reports
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleSeller, RoleMaster, RoleAdministrator:
		return true
	}
	return false
}

// IsIntermediary reports whether the role's balance mirrors the pool.
func (r Role) IsIntermediary() bool {
	return r == RoleSeller || r == RoleMaster
}

// Tier is the pricing rank of an account
type Tier string

const (
	TierDiamante Tier = "diamante"
	TierOro      Tier = "oro"
	TierBronce   Tier = "bronce"
	// TierUnlimited is assigned to intermediaries and administrators
	TierUnlimited Tier = "ultrap"
)

// IsClientTier reports whether t is one of the tiers a client may hold.
func (t Tier) IsClientTier() bool {
	switch t {
	case TierDiamante, TierOro, TierBronce:
		return true
	}
	return false
}

// Account is a platform participant with a balance
type Account struct {
	ID           uuid.UUID       `json:"id"`
	Handle       string          `json:"handle"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	Tier         Tier            `json:"tier"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Snapshot is the copy of payer or target identity stored on ledger entries.
type Snapshot struct {
	ID     uuid.UUID `json:"id"`
	Handle string    `json:"handle"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	Tier   Tier      `json:"tier"`
}

// Snapshot captures the account identity at the current instant.
func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		ID:     a.ID,
		Handle: a.Handle,
		Name:   a.Name,
		Email:  a.Email,
		Role:   a.Role,
		Tier:   a.Tier,
	}
}

var (
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// MinPasswordLength applies to newly registered accounts.
const MinPasswordLength = 8

// Slugify lowercases a handle and strips everything but ASCII letters and digits.
func Slugify(handle string) string {
	return nonSlugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(handle)), "")
}

// NewAccount builds an account from registration data. Balance and tier come from
// the role policy; passwordHash is already hashed.
func NewAccount(handle, name, email, passwordHash string, role Role, tier Tier, balance decimal.Decimal) (*Account, error) {
	slug := Slugify(handle)
	if slug == "" {
		return nil, shared.ValidationError{Field: "handle", Message: "must contain letters or digits"}
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.ValidationError{Field: "name", Message: "is required"}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, shared.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if passwordHash == "" {
		return nil, shared.ValidationError{Field: "password", Message: "is required"}
	}
	if !role.Valid() {
		return nil, shared.ValidationError{Field: "role", Message: "is not a known role"}
	}
	if balance.IsNegative() {
		return nil, shared.ValidationError{Field: "balance", Message: "must not be negative"}
	}

	now := time.Now().UTC()
	return &Account{
		ID:           uuid.New(),
		Handle:       slug,
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Tier:         tier,
		Balance:      balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
