package domain

import (
	"time"

	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
)

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	Access  jwtx.Claims
	Refresh jwtx.Claims
}

// AccessExpiresIn is the lifetime of the access token as of now.
func (p TokenPair) AccessExpiresIn(now time.Time) time.Duration {
	return p.Access.Remaining(now)
}

// RefreshExpiresIn is the lifetime of the refresh token as of now.
func (p TokenPair) RefreshExpiresIn(now time.Time) time.Duration {
	return p.Refresh.Remaining(now)
}

// SessionStatus is the revocation state of one token id.
type SessionStatus struct {
	JTI     string
	Revoked bool
}
