package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/idx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

var ErrBootstrapFailedToCreateAdmin = errors.New("failed to create superuser")

// BootstrapService creates the configured first superuser.
type BootstrapService struct {
	Store    store.Store
	Email    string
	Password string
}

// EnsureSuperuser creates the superuser unless an account with its email
// already exists. It reports whether a user was created. Without both an
// email and a password it does nothing.
func (s *BootstrapService) EnsureSuperuser(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(s.Email))
	if email == "" || s.Password == "" {
		l.Debug("no first superuser configured")
		return false, nil
	}

	_, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("failed to look up superuser: %w", err)
	}

	passHash, err := cryptox.HashPassword(s.Password)
	if err != nil {
		l.Error("failed to hash superuser password", slog.Any("error", err))
		return false, ErrBootstrapFailedToCreateAdmin
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		FullName:     "Administrator",
		PasswordHash: passHash,
		IsActive:     true,
		IsSuperuser:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		l.Error("failed to create superuser", slog.String("email", email), slog.Any("error", err))
		return false, ErrBootstrapFailedToCreateAdmin
	}

	l.Info("created first superuser", slog.String("user_id", user.ID), slog.String("email", email))
	return true, nil
}
