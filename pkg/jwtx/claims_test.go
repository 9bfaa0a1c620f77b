package jwtx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
)

func TestNewClaims(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := jwtx.NewClaims("user-1", jwtx.UseRefresh, time.Hour, "sessiongate", now)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, jwtx.UseRefresh, c.TokenUse)
	require.Equal(t, "sessiongate", c.Issuer)
	require.NotEmpty(t, c.ID)
	require.Equal(t, now.Add(time.Hour), c.ExpiresAt.Time)
	require.Equal(t, now, c.IssuedAt.Time)
}

func TestNewJTIUnique(t *testing.T) {
	const n = 5000
	seen := make(map[string]struct{}, n)
	for range n {
		id := jwtx.NewJTI()
		_, dup := seen[id]
		require.False(t, dup, "duplicate jti %s", id)
		seen[id] = struct{}{}
	}
}

func TestClaimsRemaining(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := jwtx.NewClaims("user-1", jwtx.UseAccess, 90*time.Second, "", now)

	require.Equal(t, 90*time.Second, c.Remaining(now))
	require.Equal(t, -10*time.Second, c.Remaining(now.Add(100*time.Second)))

	exp := c.Expiry()
	require.NotNil(t, exp)
	require.Equal(t, now.Add(90*time.Second), *exp)

	var empty jwtx.Claims
	require.Nil(t, empty.Expiry())
	require.Zero(t, empty.Remaining(now))
}

func TestTokenUseValid(t *testing.T) {
	require.True(t, jwtx.UseAccess.Valid())
	require.True(t, jwtx.UseRefresh.Valid())
	require.False(t, jwtx.TokenUse("id").Valid())
	require.False(t, jwtx.TokenUse("").Valid())
}
