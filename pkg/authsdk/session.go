package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
)

// Session holds one login's token pair. Calls that fail with token_expired
// are refreshed once and retried.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func newSession(c *SDKClient, tok *TokenResponse) *Session {
	return &Session{
		client:       c,
		accessToken:  tok.AccessToken,
		refreshToken: tok.RefreshToken,
	}
}

// NewSessionFromTokens wraps tokens obtained elsewhere.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{client: c, accessToken: accessToken, refreshToken: refreshToken}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Refresh rotates the session's token pair.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return errors.New("session has no refresh token")
	}

	tok, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	return nil
}

// Me returns the logged-in user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	var user UserResponse
	err := s.doAuth(ctx, func() (*http.Request, error) {
		return s.client.newRequest(ctx, http.MethodGet, "/users/me", nil)
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// StatusMe reports whether the session's access token is revoked.
func (s *Session) StatusMe(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	err := s.doAuth(ctx, func() (*http.Request, error) {
		return s.client.newRequest(ctx, http.MethodGet, "/auth/status/me", nil)
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Status reports whether any token id is revoked. Superuser only.
func (s *Session) Status(ctx context.Context, jti string) (*StatusResponse, error) {
	var status StatusResponse
	err := s.doAuth(ctx, func() (*http.Request, error) {
		return s.client.newRequest(ctx, http.MethodGet, "/auth/status/"+url.PathEscape(jti), nil)
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// RevokeMe revokes the session's access token.
func (s *Session) RevokeMe(ctx context.Context) error {
	return s.doAuth(ctx, func() (*http.Request, error) {
		return s.client.newRequest(ctx, http.MethodPost, "/auth/revoke/me", nil)
	}, nil)
}

// Revoke revokes any token id. Superuser only.
func (s *Session) Revoke(ctx context.Context, jti string) error {
	return s.doAuth(ctx, func() (*http.Request, error) {
		return s.client.newRequest(ctx, http.MethodPost, "/auth/revoke/"+url.PathEscape(jti), nil)
	}, nil)
}

// ChangePassword updates the password. The service revokes the access
// token used for the call.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	body := ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return s.doAuth(ctx, func() (*http.Request, error) {
		return s.client.newRequest(ctx, http.MethodPatch, "/users/me/password", body)
	}, nil)
}

// Logout revokes both tokens of the session.
func (s *Session) Logout(ctx context.Context) error {
	refresh := s.RefreshToken()
	return s.doAuth(ctx, func() (*http.Request, error) {
		var body any
		if refresh != "" {
			body = RefreshRequest{RefreshToken: refresh}
		}
		return s.client.newRequest(ctx, http.MethodPost, "/auth/logout", body)
	}, nil)
}
