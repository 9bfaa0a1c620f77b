package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	ProviderGoogle = "google"

	DefaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	DefaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleConfig configures the Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overridable for tests.
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	Timeout time.Duration
}

// Google is an authorization-code login against Google's OAuth2 endpoints.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

func NewGoogle(cfg GoogleConfig) *Google {
	authURL, tokenURL, userInfoURL := cfg.AuthURL, cfg.TokenURL, cfg.UserInfoURL
	if authURL == "" {
		authURL = DefaultGoogleAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultGoogleTokenURL
	}
	if userInfoURL == "" {
		userInfoURL = DefaultGoogleUserInfoURL
	}

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: userInfoURL,
		client:      newHTTPClient(cfg.Timeout),
	}
}

func (g *Google) Name() string { return ProviderGoogle }

func (g *Google) configured() bool {
	return g.oauth.ClientID != "" && g.oauth.ClientSecret != "" && g.oauth.RedirectURL != ""
}

func (g *Google) AuthCodeURL(state string) (string, error) {
	if !g.configured() {
		return "", fmt.Errorf("%w: google client id, secret or redirect url missing", ErrUnconfigured)
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (g *Google) Exchange(ctx context.Context, code string) (Identity, error) {
	if !g.configured() {
		return Identity{}, fmt.Errorf("%w: google client id, secret or redirect url missing", ErrUnconfigured)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := g.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: userinfo: %v", ErrExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: userinfo status %d", ErrExchange, resp.StatusCode)
	}

	var user googleUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("%w: decode userinfo: %v", ErrExchange, err)
	}
	if user.ID == "" {
		return Identity{}, fmt.Errorf("%w: missing user id", ErrExchange)
	}

	id := Identity{Provider: ProviderGoogle, Subject: user.ID, Name: user.Name}
	if user.VerifiedEmail {
		id.Email = user.Email
	}
	return id, nil
}
