package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
)

const revokedKeyPrefix = "jti:"

// RevocationStore records revoked token ids until the tokens would have
// expired anyway. Every check is a live round trip to the KV store.
type RevocationStore struct {
	KV  store.KV
	Now func() time.Time
}

func (s *RevocationStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// revocationTTL returns how long an entry for a token expiring at exp must
// live. ok is false when the token has already expired. A nil exp means
// forever (ttl 0).
func (s *RevocationStore) revocationTTL(exp *time.Time) (ttl time.Duration, ok bool) {
	if exp == nil {
		return 0, true
	}
	remaining := exp.Sub(s.now())
	if remaining <= 0 {
		return 0, false
	}
	// Whole seconds, rounded up, so the entry never expires before the token.
	secs := (remaining + time.Second - 1) / time.Second
	return secs * time.Second, true
}

// Revoke marks jti as revoked until exp. It reports false, writing
// nothing, when exp has already passed.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, exp *time.Time) (bool, error) {
	ttl, ok := s.revocationTTL(exp)
	if !ok {
		return false, nil
	}
	if err := s.KV.Set(ctx, revokedKeyPrefix+jti, "1", ttl); err != nil {
		return false, domain.E(domain.StoreUnavailable, "revocation.revoke", err)
	}
	return true, nil
}

// RevokeOnce is Revoke with set-if-absent semantics. It reports false when
// jti was already revoked, so of several concurrent callers exactly one
// wins.
func (s *RevocationStore) RevokeOnce(ctx context.Context, jti string, exp *time.Time) (bool, error) {
	ttl, ok := s.revocationTTL(exp)
	if !ok {
		return false, nil
	}
	won, err := s.KV.SetNX(ctx, revokedKeyPrefix+jti, "1", ttl)
	if err != nil {
		return false, domain.E(domain.StoreUnavailable, "revocation.revoke_once", err)
	}
	return won, nil
}

// IsRevoked reports whether jti has a live revocation entry.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := s.KV.Exists(ctx, revokedKeyPrefix+jti)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, domain.E(domain.StoreUnavailable, "revocation.is_revoked", err)
	}
	return revoked, nil
}
