package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/events"
	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenCodec mints and verifies session tokens.
type TokenCodec interface {
	jwtx.Signer
	jwtx.Verifier
	Now() time.Time
}

// SessionService issues token pairs, rotates refresh tokens and ends
// sessions. All session state lives in the revocation store; nothing is
// remembered about tokens that were never revoked.
type SessionService struct {
	Codec       TokenCodec
	Revocations *RevocationStore
	AccessTTL   time.Duration
	RefreshTTL  time.Duration

	Events  events.Publisher
	Metrics *telemetry.Metrics
}

// Login issues a fresh pair for subject. No earlier token is touched.
func (s *SessionService) Login(ctx context.Context, subject string) (domain.TokenPair, error) {
	pair, err := s.issue(subject)
	if err != nil {
		return domain.TokenPair{}, err
	}
	slogx.FromContext(ctx).Info("session issued", "sub", subject, "jti", pair.Access.ID)
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old
// refresh token. A token may be exchanged once: replays and the losers of
// concurrent exchanges get TokenRevoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	const op = "session.refresh"
	ctx, span := telemetry.StartSpan(ctx, op)
	defer func() { telemetry.EndSpan(span, err) }()

	claims, err := s.Codec.DecodeAs(refreshToken, jwtx.UseRefresh)
	if err != nil {
		s.Metrics.Refresh("rejected")
		if jwtx.IsExpired(err) {
			return domain.TokenPair{}, domain.E(domain.Expired, op, err)
		}
		return domain.TokenPair{}, domain.E(domain.InvalidToken, op, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		s.Metrics.Refresh("rejected")
		return domain.TokenPair{}, domain.E(domain.InvalidToken, op, errors.New("missing jti or sub"))
	}
	span.SetAttributes(attribute.String("jti", claims.ID))

	// Inside the decode leeway but past exp: nothing to revoke, and the
	// token must not be honoured.
	if claims.Remaining(s.Codec.Now()) <= 0 {
		s.Metrics.Refresh("rejected")
		return domain.TokenPair{}, domain.E(domain.Expired, op, jwtx.ErrExpired)
	}

	revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if revoked {
		return domain.TokenPair{}, s.replayed(ctx, span, claims)
	}

	won, err := s.Revocations.RevokeOnce(ctx, claims.ID, claims.Expiry())
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !won {
		return domain.TokenPair{}, s.replayed(ctx, span, claims)
	}
	s.Metrics.Revoked("rotation")

	pair, err = s.issue(claims.Subject)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.Metrics.Refresh("rotated")
	s.publish(ctx, events.Event{Type: events.SessionRefresh, Subject: claims.Subject, JTI: claims.ID})
	slogx.FromContext(ctx).Info("refresh token rotated", "sub", claims.Subject, "old_jti", claims.ID, "jti", pair.Refresh.ID)
	return pair, nil
}

func (s *SessionService) replayed(ctx context.Context, span trace.Span, claims jwtx.Claims) error {
	s.Metrics.Refresh("replayed")
	span.AddEvent("refresh_replayed")
	slogx.FromContext(ctx).Warn("revoked refresh token presented", "sub", claims.Subject, "jti", claims.ID)
	s.publish(ctx, events.Event{Type: events.RefreshReplayed, Subject: claims.Subject, JTI: claims.ID})
	return domain.E(domain.TokenRevoked, "session.refresh", nil)
}

// Logout revokes the access token that authenticated the call and, when
// given, the refresh token. Only the access revocation can fail the call.
func (s *SessionService) Logout(ctx context.Context, access jwtx.Claims, refreshToken string) error {
	return s.end(ctx, "session.logout", "logout", access, refreshToken)
}

// RevokeSession ends the calling session after a credential change. Other
// sessions of the same user stay valid.
func (s *SessionService) RevokeSession(ctx context.Context, access jwtx.Claims, refreshToken string) error {
	return s.end(ctx, "session.revoke", "password_change", access, refreshToken)
}

// RevokeCurrent revokes only the access token that authenticated the call.
func (s *SessionService) RevokeCurrent(ctx context.Context, access jwtx.Claims) error {
	return s.end(ctx, "session.revoke_current", "self", access, "")
}

func (s *SessionService) end(ctx context.Context, op, cause string, access jwtx.Claims, refreshToken string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, op)
	defer func() { telemetry.EndSpan(span, err) }()

	if access.ID == "" {
		return domain.E(domain.InvalidToken, op, errors.New("missing jti"))
	}

	if _, err := s.Revocations.Revoke(ctx, access.ID, access.Expiry()); err != nil {
		return err
	}
	s.Metrics.Revoked(cause)

	l := slogx.FromContext(ctx)
	if refreshToken != "" {
		refresh, derr := s.Codec.DecodeAs(refreshToken, jwtx.UseRefresh)
		switch {
		case derr != nil:
			l.Debug("ignoring undecodable refresh token", "error", derr)
		case refresh.ID != "":
			if _, rerr := s.Revocations.Revoke(ctx, refresh.ID, refresh.Expiry()); rerr != nil {
				l.Warn("failed to revoke refresh token", "jti", refresh.ID, "error", rerr)
			} else {
				s.Metrics.Revoked(cause)
			}
		}
	}

	s.publish(ctx, events.Event{Type: events.SessionLogout, Subject: access.Subject, JTI: access.ID, Method: cause})
	l.Info("session ended", "sub", access.Subject, "jti", access.ID, "cause", cause)
	return nil
}

// RevokeJTI revokes any token id. With no ttl the entry never expires.
func (s *SessionService) RevokeJTI(ctx context.Context, jti string, ttl *time.Duration) error {
	if jti == "" {
		return domain.E(domain.InvalidToken, "session.revoke_jti", errors.New("empty jti"))
	}

	var exp *time.Time
	if ttl != nil && *ttl > 0 {
		t := s.Codec.Now().Add(*ttl)
		exp = &t
	}
	if _, err := s.Revocations.Revoke(ctx, jti, exp); err != nil {
		return err
	}

	s.Metrics.Revoked("admin")
	s.publish(ctx, events.Event{Type: events.TokenRevoked, JTI: jti, Method: "admin"})
	slogx.FromContext(ctx).Info("token revoked by id", "jti", jti, "permanent", exp == nil)
	return nil
}

// Status reports whether jti is revoked.
func (s *SessionService) Status(ctx context.Context, jti string) (domain.SessionStatus, error) {
	revoked, err := s.Revocations.IsRevoked(ctx, jti)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return domain.SessionStatus{JTI: jti, Revoked: revoked}, nil
}

func (s *SessionService) issue(subject string) (domain.TokenPair, error) {
	access, accessClaims, err := s.Codec.CreateAccessToken(subject, s.accessTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshClaims, err := s.Codec.CreateRefreshToken(subject, s.refreshTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Access:       accessClaims,
		Refresh:      refreshClaims,
	}, nil
}

func (s *SessionService) publish(ctx context.Context, e events.Event) {
	if s.Events == nil {
		return
	}
	if e.Occurred.IsZero() {
		e.Occurred = s.Codec.Now()
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		slogx.FromContext(ctx).Warn("failed to publish session event", "event", string(e.Type), "error", err)
	}
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *SessionService) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}
