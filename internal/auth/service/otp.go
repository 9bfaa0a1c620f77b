package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

const (
	otpKeyPrefix     = "otp:"
	otpRateKeyPrefix = "otp:rate:"
)

// Defaults for one-time login codes.
const (
	DefaultCodeLength    = 6
	DefaultCodeTTL       = 5 * time.Minute
	DefaultCodeRateLimit = time.Minute
)

// CodeStore issues and verifies short-lived numeric login codes bound to a
// phone number.
type CodeStore struct {
	KV        store.KV
	Length    int
	TTL       time.Duration
	RateLimit time.Duration
}

func normalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// IssueCode creates a code for phone, replacing any earlier one. A second
// request inside the rate-limit window fails with RateLimited.
func (s *CodeStore) IssueCode(ctx context.Context, phone string) (string, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return "", domain.E(domain.InvalidCredentials, "otp.issue", errors.New("empty phone number"))
	}

	rateKey := otpRateKeyPrefix + phone
	claimed, err := s.KV.SetNX(ctx, rateKey, "1", s.rateLimit())
	if err != nil {
		return "", domain.E(domain.StoreUnavailable, "otp.issue", err)
	}
	if !claimed {
		return "", &domain.Error{
			Kind:       domain.RateLimited,
			Op:         "otp.issue",
			RetryAfter: s.retryAfter(ctx, rateKey),
		}
	}

	code, err := cryptox.GenerateNumericCode(cryptox.ClampCodeDigits(s.length()))
	if err != nil {
		s.releaseRate(ctx, rateKey)
		return "", err
	}

	if err := s.KV.Set(ctx, otpKeyPrefix+phone, code, s.ttl()); err != nil {
		s.releaseRate(ctx, rateKey)
		return "", domain.E(domain.StoreUnavailable, "otp.issue", err)
	}
	return code, nil
}

// releaseRate drops a rate marker whose code was never stored, so the
// caller can retry at once.
func (s *CodeStore) releaseRate(ctx context.Context, rateKey string) {
	if err := s.KV.Del(ctx, rateKey); err != nil {
		slogx.FromContext(ctx).Warn("failed to release code rate marker", "error", err)
	}
}

// VerifyCode reports whether code is the live code for phone and consumes
// it. A wrong code leaves the stored one in place.
func (s *CodeStore) VerifyCode(ctx context.Context, phone, code string) (bool, error) {
	phone = normalizePhone(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return false, nil
	}

	key := otpKeyPrefix + phone
	stored, err := s.KV.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.E(domain.StoreUnavailable, "otp.verify", err)
	}

	if !cryptox.ConstantTimeEqual(stored, code) {
		return false, nil
	}

	deleted, err := s.KV.DelIfEqual(ctx, key, stored)
	if err != nil {
		return false, domain.E(domain.StoreUnavailable, "otp.verify", err)
	}
	return deleted, nil
}

func (s *CodeStore) retryAfter(ctx context.Context, rateKey string) time.Duration {
	ttl, err := s.KV.TTL(ctx, rateKey)
	if err != nil || ttl <= 0 {
		return s.rateLimit()
	}
	return ttl
}

func (s *CodeStore) length() int {
	if s.Length <= 0 {
		return DefaultCodeLength
	}
	return s.Length
}

func (s *CodeStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultCodeTTL
	}
	return s.TTL
}

func (s *CodeStore) rateLimit() time.Duration {
	if s.RateLimit <= 0 {
		return DefaultCodeRateLimit
	}
	return s.RateLimit
}
