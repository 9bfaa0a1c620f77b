package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/sessiongate/pkg/idx"
)

// Default token lifetimes. Access tokens are long-lived here because every
// request checks the revocation registry, so a stolen access token can still
// be cut off before it expires.
const (
	// DefaultAccessTokenTTL is 8 days.
	DefaultAccessTokenTTL = 8 * 24 * time.Hour

	// DefaultRefreshTokenTTL is 30 days.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// DefaultLeeway absorbs clock skew between instances when checking exp.
	DefaultLeeway = 5 * time.Second
)

// TokenUse separates access tokens from refresh tokens. The two are never
// accepted interchangeably.
type TokenUse string

const (
	UseAccess  TokenUse = "access"
	UseRefresh TokenUse = "refresh"
)

// Valid reports whether u is one of the known token uses.
func (u TokenUse) Valid() bool {
	return u == UseAccess || u == UseRefresh
}

// Claims is the token payload: {sub, token_use, jti, exp, iat} plus an
// optional issuer.
type Claims struct {
	jwt.RegisteredClaims

	TokenUse TokenUse `json:"token_use"`
}

// NewClaims builds claims for a fresh issuance. Every call gets its own jti.
func NewClaims(subject string, use TokenUse, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenUse: use,
	}
}

// NewJTI returns a fresh token identifier. ULIDs from a monotonic source
// never collide inside one process, even within the same millisecond.
func NewJTI() string {
	return idx.New().String()
}

// Expiry returns the exp claim, or nil when the token carries none.
func (c *Claims) Expiry() *time.Time {
	if c.ExpiresAt == nil {
		return nil
	}
	t := c.ExpiresAt.Time
	return &t
}

// Remaining returns how long the token stays valid after now. It is zero or
// negative for expired tokens.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
