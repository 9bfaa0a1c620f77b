package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/events"
	"github.com/aussiebroadwan/sessiongate/internal/auth/oauth"
	"github.com/aussiebroadwan/sessiongate/internal/auth/sms"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store"
	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/idx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

// ErrInvalidState is wrapped in an InvalidCredentials error when an OAuth
// callback carries a state that was never issued, expired, or was already
// used.
var ErrInvalidState = errors.New("oauth state invalid or expired")

// Login methods, as reported in metrics and events.
const (
	MethodPassword = "password"
	MethodPhone    = "phone"
)

// LoginResult is a successful login: the user and their new session.
type LoginResult struct {
	User domain.User
	Pair domain.TokenPair
}

// LoginService authenticates users by password, SMS code or OAuth provider
// and opens a session for them. Phone and OAuth logins provision unknown
// users on first use.
type LoginService struct {
	Store     store.Store
	Sessions  *SessionService
	Codes     *CodeStore
	States    *StateStore
	SMS       sms.Sender
	Providers *oauth.Registry

	// EchoCodes returns issued SMS codes to the caller. Local mode only.
	EchoCodes bool

	Metrics *telemetry.Metrics
	Now     func() time.Time
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// PasswordLogin checks email and password. Unknown emails cost the same
// hashing work as a wrong password.
func (s *LoginService) PasswordLogin(ctx context.Context, email, password, ip string) (LoginResult, error) {
	const op = "login.password"
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		cryptox.BurnPasswordCheck(password)
		s.Metrics.Login(MethodPassword, "failure")
		return LoginResult{}, domain.E(domain.InvalidCredentials, op, nil)
	}
	if err != nil {
		return LoginResult{}, domain.E(domain.StoreUnavailable, op, err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMalformedHash) {
			slogx.FromContext(ctx).Error("stored password hash is malformed", "user_id", user.ID)
		}
		s.Metrics.Login(MethodPassword, "failure")
		return LoginResult{}, domain.E(domain.InvalidCredentials, op, nil)
	}

	return s.complete(ctx, op, MethodPassword, user, ip)
}

// SendPhoneCode issues a login code for phone and hands it to the SMS
// provider. The returned code is empty unless EchoCodes is set. Delivery
// failures are logged only; the code stays valid.
func (s *LoginService) SendPhoneCode(ctx context.Context, phone string) (string, error) {
	phone = normalizePhone(phone)
	l := slogx.FromContext(ctx).With("phone", slogx.MaskPhone(phone))

	code, err := s.Codes.IssueCode(ctx, phone)
	if err != nil {
		if domain.KindOf(err) == domain.RateLimited {
			s.Metrics.OTPRequested("rate_limited")
			l.Info("login code requested inside rate limit window")
		}
		return "", err
	}
	s.Metrics.OTPRequested("issued")

	if s.SMS != nil {
		if err := s.SMS.SendLoginCode(ctx, phone, code); err != nil {
			s.Metrics.OTPRequested("send_failed")
			l.Error("failed to send login code", "provider", s.SMS.Name(), "error", err)
		}
	}

	l.Info("login code issued")
	if s.EchoCodes {
		return code, nil
	}
	return "", nil
}

// PhoneLogin consumes a login code and opens a session for the phone's
// user, creating the user on first login.
func (s *LoginService) PhoneLogin(ctx context.Context, phone, code, ip string) (LoginResult, error) {
	const op = "login.phone"
	phone = normalizePhone(phone)

	ok, err := s.Codes.VerifyCode(ctx, phone, code)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		s.Metrics.Login(MethodPhone, "failure")
		slogx.FromContext(ctx).Info("login code rejected", "phone", slogx.MaskPhone(phone))
		return LoginResult{}, domain.E(domain.InvalidCredentials, op, errors.New("invalid or expired code"))
	}

	user, err := s.Store.Users().GetUserByPhone(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.provisionPhoneUser(ctx, phone)
	}
	if err != nil {
		return LoginResult{}, err
	}

	return s.complete(ctx, op, MethodPhone, user, ip)
}

func (s *LoginService) provisionPhoneUser(ctx context.Context, phone string) (domain.User, error) {
	user, err := s.newUser(PhoneEmail(phone))
	if err != nil {
		return domain.User{}, err
	}
	user.PhoneNumber = &phone

	err = s.Store.Users().CreateUser(ctx, user)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with a concurrent first login for the same phone.
		return s.Store.Users().GetUserByPhone(ctx, phone)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to provision phone user: %w", err)
	}

	slogx.FromContext(ctx).Info("user provisioned", "user_id", user.ID, "method", MethodPhone, "phone", slogx.MaskPhone(phone))
	s.Sessions.publish(ctx, events.Event{Type: events.UserProvisioned, Subject: user.ID, Method: MethodPhone})
	return user, nil
}

// AuthorizeURL starts an OAuth login: it issues a state and returns the
// provider URL to send the browser to.
func (s *LoginService) AuthorizeURL(ctx context.Context, provider string) (authURL, state string, err error) {
	const op = "login.oauth_authorize"

	p, err := s.Providers.Get(provider)
	if err != nil {
		return "", "", domain.E(domain.NotFound, op, err)
	}

	state, err = s.States.GenerateState(ctx)
	if err != nil {
		return "", "", err
	}

	authURL, err = p.AuthCodeURL(state)
	if err != nil {
		return "", "", domain.E(domain.Unconfigured, op, err)
	}
	return authURL, state, nil
}

// OAuthCallback completes an OAuth login. The state is consumed before the
// code is exchanged.
func (s *LoginService) OAuthCallback(ctx context.Context, provider, code, state, ip string) (LoginResult, error) {
	const op = "login.oauth_callback"

	p, err := s.Providers.Get(provider)
	if err != nil {
		return LoginResult{}, domain.E(domain.NotFound, op, err)
	}

	valid, err := s.States.ValidateState(ctx, state)
	if err != nil {
		return LoginResult{}, err
	}
	if !valid {
		s.Metrics.Login(provider, "failure")
		return LoginResult{}, domain.E(domain.InvalidCredentials, op, ErrInvalidState)
	}
	if strings.TrimSpace(code) == "" {
		s.Metrics.Login(provider, "failure")
		return LoginResult{}, domain.E(domain.InvalidCredentials, op, errors.New("missing authorization code"))
	}

	ident, err := p.Exchange(ctx, code)
	if errors.Is(err, oauth.ErrUnconfigured) {
		return LoginResult{}, domain.E(domain.Unconfigured, op, err)
	}
	if err != nil {
		s.Metrics.Login(provider, "failure")
		slogx.FromContext(ctx).Warn("oauth code exchange failed", "provider", provider, "error", err)
		return LoginResult{}, domain.E(domain.InvalidCredentials, op, err)
	}

	user, err := s.userForIdentity(ctx, ident)
	if err != nil {
		return LoginResult{}, err
	}

	return s.complete(ctx, op, provider, user, ip)
}

func (s *LoginService) userForIdentity(ctx context.Context, ident oauth.Identity) (domain.User, error) {
	link, err := s.Store.Identities().GetIdentity(ctx, ident.Provider, ident.Subject)
	if err == nil {
		user, err := s.Store.Users().GetUserByID(ctx, link.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.E(domain.NotFound, "login.oauth_identity", err)
		}
		if err != nil {
			return domain.User{}, domain.E(domain.StoreUnavailable, "login.oauth_identity", err)
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.E(domain.StoreUnavailable, "login.oauth_identity", err)
	}

	user, err := s.newUser(IdentityEmail(ident.Provider, ident.Subject))
	if err != nil {
		return domain.User{}, err
	}
	user.FullName = ident.Name

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.Identities().LinkIdentity(ctx, domain.Identity{
			Provider:  ident.Provider,
			Subject:   ident.Subject,
			UserID:    user.ID,
			CreatedAt: user.CreatedAt,
		})
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		link, lerr := s.Store.Identities().GetIdentity(ctx, ident.Provider, ident.Subject)
		if lerr != nil {
			return domain.User{}, fmt.Errorf("failed to provision %s user: %w", ident.Provider, err)
		}
		return s.Store.Users().GetUserByID(ctx, link.UserID)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to provision %s user: %w", ident.Provider, err)
	}

	slogx.FromContext(ctx).Info("user provisioned", "user_id", user.ID, "method", ident.Provider)
	s.Sessions.publish(ctx, events.Event{Type: events.UserProvisioned, Subject: user.ID, Method: ident.Provider})
	return user, nil
}

// newUser builds an active account with a random, never disclosed
// password.
func (s *LoginService) newUser(email string) (domain.User, error) {
	password, err := cryptox.GeneratePassword()
	if err != nil {
		return domain.User{}, err
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	return domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *LoginService) complete(ctx context.Context, op, method string, user domain.User, ip string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	if !user.IsActive {
		s.Metrics.Login(method, "inactive")
		l.Info("login refused for inactive user", "user_id", user.ID, "method", method)
		return LoginResult{}, domain.E(domain.Inactive, op, nil)
	}

	if err := s.Store.Users().RecordLogin(ctx, user.ID, s.now(), ip); err != nil {
		l.Warn("failed to record login", "user_id", user.ID, "error", err)
	}

	pair, err := s.Sessions.Login(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	s.Metrics.Login(method, "success")
	s.Sessions.publish(ctx, events.Event{Type: events.LoginSucceeded, Subject: user.ID, JTI: pair.Access.ID, Method: method})
	l.Info("login succeeded", "user_id", user.ID, "method", method)
	return LoginResult{User: user, Pair: pair}, nil
}

// PhoneEmail is the placeholder email given to users provisioned by phone
// login.
func PhoneEmail(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return "p" + b.String() + "@example.com"
}

// IdentityEmail is the placeholder email given to users provisioned by an
// OAuth provider.
func IdentityEmail(provider, subject string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(subject) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return provider + "_" + b.String() + "@example.com"
}
