package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

// RevocationChecker answers whether a token id was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserLoader resolves the subject of a token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

// Gate authenticates every request that is not on the public allow-list.
// A request passes only with an unexpired, unrevoked access token whose
// subject is an active user.
type Gate struct {
	Verifier    jwtx.Verifier
	Revocations RevocationChecker
	Users       UserLoader
	Metrics     *telemetry.Metrics

	// PublicPaths match exactly, PublicPrefixes by prefix.
	PublicPaths    []string
	PublicPrefixes []string

	// FailOpen lets requests through when the revocation store cannot be
	// reached. Only set in local mode.
	FailOpen bool
}

// DefaultPublicPaths are the exact routes, relative to the API prefix, that
// never need a token.
var DefaultPublicPaths = []string{
	"/auth/access-token",
	"/auth/refresh",
	"/auth/phone/send-code",
	"/auth/phone/login",
	"/utils/health-check/",
}

// DefaultPublicPrefixes are the public route prefixes relative to the API
// prefix.
var DefaultPublicPrefixes = []string{
	"/auth/oauth/",
	"/livez",
	"/readyz",
}

// rootPublicPrefixes are served outside the API prefix.
var rootPublicPrefixes = []string{
	"/metrics",
	"/swagger/",
}

// NewGateAllowList builds the allow-list for an API prefix. Local mode also
// opens <prefix>/private/. Extra entries are taken as given.
func NewGateAllowList(apiPrefix string, local bool, extraPaths, extraPrefixes []string) (paths, prefixes []string) {
	apiPrefix = strings.TrimSuffix(apiPrefix, "/")

	for _, p := range DefaultPublicPaths {
		paths = append(paths, apiPrefix+p)
	}
	for _, p := range DefaultPublicPrefixes {
		prefixes = append(prefixes, apiPrefix+p)
	}
	prefixes = append(prefixes, rootPublicPrefixes...)
	if local {
		prefixes = append(prefixes, apiPrefix+"/private/")
	}

	for _, p := range extraPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	for _, p := range extraPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return paths, prefixes
}

func (g *Gate) public(path string) bool {
	for _, p := range g.PublicPaths {
		if path == p {
			return true
		}
	}
	for _, p := range g.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware returns the gate as an httpx.Middleware.
func (g *Gate) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || g.public(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, apiErr, reason := g.authenticate(r)
			if apiErr != nil {
				g.Metrics.GateRejected(reason)
				slogx.FromContext(r.Context()).Debug("request rejected by gate", "reason", reason)
				apiErr.WriteError(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gate) authenticate(r *http.Request) (context.Context, *authsdk.APIError, string) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	token, _ := httpx.ExtractBearer(r)
	if token == "" {
		return nil, authsdk.ErrNotAuthenticated, "missing_token"
	}

	claims, err := g.Verifier.DecodeAs(token, jwtx.UseAccess)
	if err != nil {
		if jwtx.IsExpired(err) {
			return nil, authsdk.ErrTokenExpired, "expired"
		}
		return nil, authsdk.ErrInvalidToken, "invalid"
	}

	if claims.ID == "" {
		return nil, authsdk.ErrInvalidTokenID, "missing_jti"
	}

	revoked, err := g.Revocations.IsRevoked(ctx, claims.ID)
	switch {
	case err != nil && g.FailOpen:
		l.Warn("revocation store unreachable, allowing request", "jti", claims.ID, "error", err)
	case err != nil:
		l.Error("revocation store unreachable", "jti", claims.ID, "error", err)
		return nil, authsdk.ErrStoreUnavailable, "store_unavailable"
	case revoked:
		return nil, authsdk.ErrTokenRevoked, "revoked"
	}

	if claims.Subject == "" {
		return nil, authsdk.ErrInvalidToken.WithStatus(http.StatusUnauthorized).WithDescription("token has no subject"), "missing_sub"
	}

	user, err := g.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if domain.KindOf(err) == domain.NotFound {
			return nil, authsdk.ErrNotFound, "unknown_user"
		}
		l.Error("failed to load token subject", "sub", claims.Subject, "error", err)
		return nil, authsdk.ErrStoreUnavailable, "store_unavailable"
	}
	if !user.IsActive {
		return nil, authsdk.ErrInactiveUser, "inactive"
	}

	ctx = httpx.WithIdentity(ctx, httpx.Identity{
		Subject:   user.ID,
		Active:    user.IsActive,
		Superuser: user.IsSuperuser,
		Claims:    claims,
	})
	ctx = withUser(ctx, user)
	ctx = slogx.With(ctx, "sub", user.ID, "jti", claims.ID)
	return ctx, nil, ""
}

type userCtxKey struct{}

func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// userFrom returns the user the gate resolved for this request.
func userFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(domain.User)
	return u, ok
}

// requireSuperuser rejects callers the gate did not mark as superuser.
func requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IdentityFrom(r.Context())
		if !ok {
			authsdk.ErrNotAuthenticated.WriteError(w)
			return
		}
		if !id.Superuser {
			authsdk.ErrForbidden.WriteError(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
