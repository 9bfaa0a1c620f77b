package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/events"
	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGetUserByID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.createUser(t, "ada@example.com", "correct horse", true)

	got, err := h.users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)

	_, err = h.users.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.createUser(t, "ada@example.com", "correct horse", true)

	res, err := h.login.PasswordLogin(ctx, "ada@example.com", "correct horse", "")
	require.NoError(t, err)
	other, err := h.login.PasswordLogin(ctx, "ada@example.com", "correct horse", "")
	require.NoError(t, err)

	err = h.users.ChangePassword(ctx, res.User, "wrong", "battery staple", res.Pair.Access, res.Pair.RefreshToken)
	requireKind(t, err, domain.InvalidCredentials)

	err = h.users.ChangePassword(ctx, res.User, "correct horse", "correct horse", res.Pair.Access, res.Pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrPasswordUnchanged)

	require.NoError(t, h.users.ChangePassword(ctx, res.User, "correct horse", "battery staple", res.Pair.Access, res.Pair.RefreshToken))

	stored, err := h.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("battery staple", stored.PasswordHash))

	// The calling session is gone, the other one survives.
	st, err := h.sessions.Status(ctx, res.Pair.Access.ID)
	require.NoError(t, err)
	require.True(t, st.Revoked)
	_, err = h.sessions.Refresh(ctx, res.Pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrTokenRevoked)

	st, err = h.sessions.Status(ctx, other.Pair.Access.ID)
	require.NoError(t, err)
	require.False(t, st.Revoked)

	require.Contains(t, h.events.Types(), events.PasswordChanged)

	_, err = h.login.PasswordLogin(ctx, "ada@example.com", "correct horse", "")
	requireKind(t, err, domain.InvalidCredentials)
	_, err = h.login.PasswordLogin(ctx, "ada@example.com", "battery staple", "")
	require.NoError(t, err)
}

func TestEnsureSuperuser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	b := &service.BootstrapService{Store: h.store}
	created, err := b.EnsureSuperuser(ctx)
	require.NoError(t, err)
	require.False(t, created)

	b.Email = "Admin@Example.com"
	b.Password = "changethis-please"
	created, err = b.EnsureSuperuser(ctx)
	require.NoError(t, err)
	require.True(t, created)

	admin, err := h.store.Users().GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.True(t, admin.IsSuperuser)
	require.True(t, admin.IsActive)

	created, err = b.EnsureSuperuser(ctx)
	require.NoError(t, err)
	require.False(t, created)

	res, err := h.login.PasswordLogin(ctx, "admin@example.com", "changethis-please", "")
	require.NoError(t, err)
	require.True(t, res.User.IsSuperuser)
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

func TestStoreMonitorTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := newHarness(t)

	kv := &stubPinger{}
	m := service.NewStoreMonitor(map[string]service.Pinger{"kv": kv, "db": h.store}, logger, h.metrics, 0)

	up := m.Check(context.Background())
	require.Equal(t, map[string]bool{"kv": true, "db": true}, up)
	require.True(t, m.Up("kv"))

	kv.err = errors.New("connection refused")
	up = m.Check(context.Background())
	require.False(t, up["kv"])
	require.False(t, m.Up("kv"))
	require.Contains(t, buf.String(), "store unreachable")

	buf.Reset()
	m.Check(context.Background())
	require.NotContains(t, buf.String(), "store unreachable")

	kv.err = nil
	m.Check(context.Background())
	require.True(t, m.Up("kv"))
	require.Contains(t, buf.String(), "store recovered")
}

func TestStoreMonitorStartStop(t *testing.T) {
	h := newHarness(t)
	m := service.NewStoreMonitor(map[string]service.Pinger{"kv": h.kv}, slog.New(slog.DiscardHandler), nil, 0)

	m.Start()
	m.Stop()
	require.True(t, m.Up("kv"))
}
