package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testUser(id, email string, phone *string) domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.User{
		ID:           id,
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func ptr(s string) *string { return &s }

func TestMigrationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsersLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	users := s.Users()

	empty, err := users.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := testUser("01J0000000000000000000000A", "alice@example.com", ptr("13800138000"))
	u.FullName = "Alice"
	require.NoError(t, users.CreateUser(ctx, u))

	empty, err = users.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	got, err := users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, "Alice", got.FullName)
	require.NotNil(t, got.PhoneNumber)
	require.Equal(t, "13800138000", *got.PhoneNumber)
	require.True(t, got.IsActive)
	require.False(t, got.IsSuperuser)
	require.Nil(t, got.LastLoginAt)
	require.True(t, u.CreatedAt.Equal(got.CreatedAt))

	byEmail, err := users.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byPhone, err := users.GetUserByPhone(ctx, "13800138000")
	require.NoError(t, err)
	require.Equal(t, u.ID, byPhone.ID)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, users.RecordLogin(ctx, u.ID, at, "203.0.113.7"))
	got, err = users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, at.Equal(*got.LastLoginAt))
	require.Equal(t, "203.0.113.7", got.LastLoginIP)

	require.NoError(t, users.UpdatePasswordHash(ctx, u.ID, "new-hash"))
	got, err = users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
}

func TestUsersNotFound(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	_, err := users.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = users.GetUserByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = users.GetUserByPhone(ctx, "000")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, users.UpdatePasswordHash(ctx, "missing", "h"), store.ErrNotFound)
	require.ErrorIs(t, users.RecordLogin(ctx, "missing", time.Now(), ""), store.ErrNotFound)
}

func TestUsersUniqueness(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	require.NoError(t, users.CreateUser(ctx, testUser("u1", "a@example.com", ptr("111"))))
	require.ErrorIs(t, users.CreateUser(ctx, testUser("u2", "a@example.com", nil)), store.ErrAlreadyExists)
	require.ErrorIs(t, users.CreateUser(ctx, testUser("u3", "b@example.com", ptr("111"))), store.ErrAlreadyExists)

	// Users without a phone number do not collide with each other.
	require.NoError(t, users.CreateUser(ctx, testUser("u4", "c@example.com", nil)))
	require.NoError(t, users.CreateUser(ctx, testUser("u5", "d@example.com", ptr(""))))
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Users().CreateUser(ctx, testUser("u1", "wx@example.com", nil)))

	link := domain.Identity{Provider: "wechat", Subject: "openid-1", UserID: "u1", CreatedAt: time.Now()}
	require.NoError(t, s.Identities().LinkIdentity(ctx, link))
	require.ErrorIs(t, s.Identities().LinkIdentity(ctx, link), store.ErrAlreadyExists)

	got, err := s.Identities().GetIdentity(ctx, "wechat", "openid-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	_, err = s.Identities().GetIdentity(ctx, "google", "openid-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Foreign key to users is enforced.
	err = s.Identities().LinkIdentity(ctx, domain.Identity{Provider: "google", Subject: "x", UserID: "ghost", CreatedAt: time.Now()})
	require.Error(t, err)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, testUser("u1", "a@example.com", nil)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByID(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound, "rolled back")

	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, testUser("u1", "a@example.com", nil)); err != nil {
			return err
		}
		return tx.Identities().LinkIdentity(ctx, domain.Identity{Provider: "google", Subject: "sub", UserID: "u1", CreatedAt: time.Now()})
	})
	require.NoError(t, err)

	_, err = s.Identities().GetIdentity(ctx, "google", "sub")
	require.NoError(t, err)
}
