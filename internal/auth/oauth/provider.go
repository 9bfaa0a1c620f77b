// Package oauth implements the third-party sign-in providers: a WeChat
// website app and a generic OAuth2 (Google) provider.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"
)

const DefaultHTTPTimeout = 10 * time.Second

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrUnconfigured    = errors.New("oauth: provider not configured")
	ErrExchange        = errors.New("oauth: code exchange failed")
)

// Identity is what a provider tells us about the user after a successful
// exchange. Subject is stable per provider; Email and Name may be empty.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Provider is a third-party authorization-code login.
type Provider interface {
	Name() string
	// AuthCodeURL returns the URL the browser is sent to.
	AuthCodeURL(state string) (string, error)
	// Exchange trades an authorization code for the user's identity.
	Exchange(ctx context.Context, code string) (Identity, error)
}

// Registry holds the providers built at startup.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider or ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, ErrUnknownProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists the registered providers in order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}
