package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
)

const (
	stateKeyPrefix  = "wxstate:"
	DefaultStateTTL = 5 * time.Minute
)

// StateStore issues single-use OAuth state values.
type StateStore struct {
	KV  store.KV
	TTL time.Duration
}

// GenerateState returns a new random state, valid for TTL.
func (s *StateStore) GenerateState(ctx context.Context) (string, error) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if err := s.KV.Set(ctx, stateKeyPrefix+state, "1", ttl); err != nil {
		return "", domain.E(domain.StoreUnavailable, "state.generate", err)
	}
	return state, nil
}

// ValidateState consumes state. It reports true at most once per state.
func (s *StateStore) ValidateState(ctx context.Context, state string) (bool, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return false, nil
	}

	_, err := s.KV.GetDel(ctx, stateKeyPrefix+state)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.E(domain.StoreUnavailable, "state.validate", err)
	}
	return true, nil
}
