package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod is the only algorithm tokens are signed or accepted with.
var SigningMethod = jwt.SigningMethodHS256

// Signer mints tokens.
type Signer interface {
	CreateAccessToken(subject string, ttl time.Duration) (string, Claims, error)
	CreateRefreshToken(subject string, ttl time.Duration) (string, Claims, error)
}

// CreateAccessToken signs {sub, token_use: access, jti, exp: now+ttl}.
func (c *Codec) CreateAccessToken(subject string, ttl time.Duration) (string, Claims, error) {
	return c.create(subject, UseAccess, ttl)
}

// CreateRefreshToken signs {sub, token_use: refresh, jti, exp: now+ttl}.
func (c *Codec) CreateRefreshToken(subject string, ttl time.Duration) (string, Claims, error) {
	return c.create(subject, UseRefresh, ttl)
}

// Sign encodes arbitrary claims. Callers normally want the Create helpers,
// which always mint a fresh jti.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(SigningMethod, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

func (c *Codec) create(subject string, use TokenUse, ttl time.Duration) (string, Claims, error) {
	if subject == "" {
		return "", Claims{}, fmt.Errorf("jwtx: empty subject")
	}
	if ttl <= 0 {
		return "", Claims{}, fmt.Errorf("jwtx: non-positive ttl %s", ttl)
	}

	claims := NewClaims(subject, use, ttl, c.issuer, c.now())
	signed, err := c.Sign(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}
