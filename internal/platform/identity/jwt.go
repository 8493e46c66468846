// Package identity verifies the bearer tokens issued by the external identity
// provider and turns them into the caller's account id and role.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/reseller-settlement/internal/config"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/shared"
)

// Identity is the authenticated caller
type Identity struct {
	AccountID uuid.UUID
	Role      account.Role
}

// Verifier resolves a raw bearer token to an Identity or a shared.AuthError
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims carried by provider tokens. The subject is the account id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens signed with the shared secret
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(cfg *config.AuthConfig) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
	}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, shared.AuthError{Reason: "missing bearer token"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.AuthError{Reason: "token expired"}
		}
		return nil, shared.AuthError{Reason: "invalid token"}
	}
	if !token.Valid {
		return nil, shared.AuthError{Reason: "invalid token"}
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.AuthError{Reason: "token subject is not an account id"}
	}

	role := account.Role(claims.Role)
	if !role.Valid() {
		return nil, shared.AuthError{Reason: "token carries an unknown role"}
	}

	return &Identity{AccountID: accountID, Role: role}, nil
}

// Sign issues a token the verifier accepts. Used by local tooling and tests in
// place of the identity provider.
func (v *JWTVerifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
