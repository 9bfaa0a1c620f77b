package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/events"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

// ErrPasswordUnchanged is wrapped in an InvalidCredentials error when the
// new password equals the current one.
var ErrPasswordUnchanged = errors.New("new password equals current password")

type UserService struct {
	Store    store.Store
	Sessions *SessionService
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.E(domain.NotFound, "user.get", err)
	}
	if err != nil {
		return domain.User{}, domain.E(domain.StoreUnavailable, "user.get", err)
	}
	return user, nil
}

// ChangePassword replaces the user's password and ends the session that
// made the request. Other sessions of the user stay valid.
func (s *UserService) ChangePassword(
	ctx context.Context,
	user domain.User,
	current, next string,
	access jwtx.Claims,
	refreshToken string,
) error {
	const op = "user.change_password"

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return domain.E(domain.InvalidCredentials, op, err)
	}
	if current == next {
		return domain.E(domain.InvalidCredentials, op, ErrPasswordUnchanged)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return domain.E(domain.StoreUnavailable, op, err)
	}

	if err := s.Sessions.RevokeSession(ctx, access, refreshToken); err != nil {
		return err
	}

	s.Sessions.publish(ctx, events.Event{Type: events.PasswordChanged, Subject: user.ID, JTI: access.ID})
	slogx.FromContext(ctx).Info("password changed", "user_id", user.ID)
	return nil
}
