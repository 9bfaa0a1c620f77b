package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a token and gives you back the claims if it's legit.
type Verifier interface {
	Decode(token string) (Claims, error)
	DecodeAs(token string, use TokenUse) (Claims, error)
}

// Decode failures come in two flavours. Callers treat them differently:
// expired means "refresh or log in again", invalid means "reject, this was
// tampered with or never ours".
var (
	ErrExpired = errors.New("jwtx: token expired")
	ErrInvalid = errors.New("jwtx: invalid token")

	// ErrWrongTokenUse is an ErrInvalid: a refresh token where an access
	// token was required or the other way round.
	ErrWrongTokenUse = fmt.Errorf("%w: unexpected token_use", ErrInvalid)
)

// Decode verifies the HS256 signature, the issuer (when configured) and
// expiry. Any algorithm other than HS256 is rejected.
func (c *Codec) Decode(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{SigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims Claims
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalid
	}

	return claims, nil
}

// DecodeAs is Decode plus a token_use check.
func (c *Codec) DecodeAs(tokenStr string, use TokenUse) (Claims, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenUse != use {
		return Claims{}, ErrWrongTokenUse
	}
	return claims, nil
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }
