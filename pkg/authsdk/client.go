package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIPrefix is where the service mounts its API.
const DefaultAPIPrefix = "/api/v1"

// SDKClient talks to the public endpoints of the auth service and creates
// Sessions from successful logins.
type SDKClient struct {
	BaseURL    string
	APIPrefix  string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		APIPrefix: DefaultAPIPrefix,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HealthCheck calls the API health check.
func (c *SDKClient) HealthCheck(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/utils/health-check/", nil)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := c.do(req, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// GetReadiness reports whether the service can reach its stores.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/readyz", nil)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := c.do(req, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// SendPhoneCode asks the service to deliver a login code to phone.
func (c *SDKClient) SendPhoneCode(ctx context.Context, phone string) (*SendCodeResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/phone/send-code", PhoneCodeRequest{PhoneNumber: phone})
	if err != nil {
		return nil, err
	}
	var resp SendCodeResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PhoneLogin exchanges a delivered code for a session.
func (c *SDKClient) PhoneLogin(ctx context.Context, phone, code string) (*Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/phone/login", PhoneLoginRequest{PhoneNumber: phone, Code: code})
	if err != nil {
		return nil, err
	}
	return c.login(req)
}

// PasswordLogin logs in with an email and password.
func (c *SDKClient) PasswordLogin(ctx context.Context, email, password string) (*Session, error) {
	req, err := c.newFormRequest(ctx, "/auth/access-token", url.Values{
		"username": {email},
		"password": {password},
	})
	if err != nil {
		return nil, err
	}
	return c.login(req)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked by the service whether or not the caller keeps the result.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	var tok TokenResponse
	if err := c.do(req, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *SDKClient) login(req *http.Request) (*Session, error) {
	var tok TokenResponse
	if err := c.do(req, &tok); err != nil {
		return nil, err
	}
	return newSession(c, &tok), nil
}
