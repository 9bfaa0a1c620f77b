package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/events"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesFreshPair(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	p1, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)
	p2, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	jtis := map[string]struct{}{}
	for _, c := range []jwtx.Claims{p1.Access, p1.Refresh, p2.Access, p2.Refresh} {
		require.NotEmpty(t, c.ID)
		jtis[c.ID] = struct{}{}
	}
	require.Len(t, jtis, 4)

	access, err := h.codec.DecodeAs(p1.AccessToken, jwtx.UseAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", access.Subject)
	require.Equal(t, 15*time.Minute, p1.AccessExpiresIn(h.clock.Now()))
	require.Equal(t, time.Hour, p1.RefreshExpiresIn(h.clock.Now()))

	// Logging in again leaves earlier sessions alone.
	st, err := h.sessions.Status(ctx, p1.Access.ID)
	require.NoError(t, err)
	require.False(t, st.Revoked)
}

func TestRefreshRotates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	next, err := h.sessions.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", next.Refresh.Subject)
	require.NotEqual(t, pair.Refresh.ID, next.Refresh.ID)

	st, err := h.sessions.Status(ctx, pair.Refresh.ID)
	require.NoError(t, err)
	require.True(t, st.Revoked)

	// The old refresh token is spent.
	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenRevoked)
	require.Contains(t, h.events.Types(), events.RefreshReplayed)

	// The new one still works.
	_, err = h.sessions.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		revoked int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.sessions.Refresh(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case domain.KindOf(err) == domain.TokenRevoked:
				revoked++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
	require.Equal(t, n-1, revoked)
}

func TestRefreshRejects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	t.Run("access token", func(t *testing.T) {
		_, err := h.sessions.Refresh(ctx, pair.AccessToken)
		requireKind(t, err, domain.InvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.sessions.Refresh(ctx, "not.a.jwt")
		requireKind(t, err, domain.InvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := h.sessions.Refresh(ctx, "")
		requireKind(t, err, domain.InvalidToken)
	})

	t.Run("missing jti", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", jwtx.UseRefresh, time.Hour, "sessiongate-test", h.clock.Now())
		claims.ID = ""
		token, err := h.codec.Sign(claims)
		require.NoError(t, err)

		_, err = h.sessions.Refresh(ctx, token)
		requireKind(t, err, domain.InvalidToken)
	})
}

func TestRefreshExpired(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	// Past exp but inside the decode leeway: still refused, nothing revoked.
	h.clock.Advance(time.Hour + 2*time.Second)
	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, domain.Expired)
	require.False(t, h.mr.Exists("jti:"+pair.Refresh.ID))

	h.clock.Advance(time.Minute)
	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, domain.Expired)
}

func TestRefreshStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	h.mr.SetError("ERR down")
	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	requireKind(t, err, domain.StoreUnavailable)
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, h.sessions.Logout(ctx, pair.Access, pair.RefreshToken))

	for _, jti := range []string{pair.Access.ID, pair.Refresh.ID} {
		st, err := h.sessions.Status(ctx, jti)
		require.NoError(t, err)
		require.True(t, st.Revoked, jti)
	}

	// Entries live as long as the tokens would have.
	require.Equal(t, 15*time.Minute, h.mr.TTL("jti:"+pair.Access.ID))
	require.Equal(t, time.Hour, h.mr.TTL("jti:"+pair.Refresh.ID))

	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenRevoked)
	require.Contains(t, h.events.Types(), events.SessionLogout)
}

func TestLogoutIgnoresBadRefreshToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, h.sessions.Logout(ctx, pair.Access, "garbage"))

	st, err := h.sessions.Status(ctx, pair.Access.ID)
	require.NoError(t, err)
	require.True(t, st.Revoked)

	st, err = h.sessions.Status(ctx, pair.Refresh.ID)
	require.NoError(t, err)
	require.False(t, st.Revoked)
}

func TestLogoutStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	h.mr.SetError("ERR down")
	err = h.sessions.Logout(ctx, pair.Access, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestLogoutRequiresJTI(t *testing.T) {
	h := newHarness(t)
	err := h.sessions.Logout(context.Background(), jwtx.Claims{}, "")
	requireKind(t, err, domain.InvalidToken)
}

func TestRevokeJTI(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.sessions.RevokeJTI(ctx, "forever", nil))
	require.Zero(t, h.mr.TTL("jti:forever"))

	ttl := 30 * time.Second
	require.NoError(t, h.sessions.RevokeJTI(ctx, "brief", &ttl))
	require.Equal(t, ttl, h.mr.TTL("jti:brief"))

	h.mr.FastForward(31 * time.Second)
	st, err := h.sessions.Status(ctx, "brief")
	require.NoError(t, err)
	require.False(t, st.Revoked)

	st, err = h.sessions.Status(ctx, "forever")
	require.NoError(t, err)
	require.True(t, st.Revoked)

	requireKind(t, h.sessions.RevokeJTI(ctx, "", nil), domain.InvalidToken)
}

func TestRevokeCurrentLeavesRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pair, err := h.sessions.Login(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, h.sessions.RevokeCurrent(ctx, pair.Access))

	st, err := h.sessions.Status(ctx, pair.Access.ID)
	require.NoError(t, err)
	require.True(t, st.Revoked)

	_, err = h.sessions.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}
