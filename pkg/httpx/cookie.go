package httpx

import (
	"net/http"
	"strings"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

// CookiePolicy controls how the refresh cookie is written.
type CookiePolicy struct {
	// Path scopes the cookie, normally the API root ("/api/v1").
	Path string

	// Secure is false only in local mode, where the API is served over
	// plain HTTP.
	Secure bool
}

// ReadRefreshCookie returns the trimmed refresh cookie value when present.
func ReadRefreshCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	return v, v != ""
}

// WriteRefreshCookie sets an HttpOnly, SameSite=Lax refresh cookie whose
// Max-Age equals ttl.
func WriteRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration, p CookiePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     cookiePath(p),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRefreshCookie expires the refresh cookie.
func ClearRefreshCookie(w http.ResponseWriter, p CookiePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     cookiePath(p),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAccessCookie expires an access_token cookie set by a frontend. The
// cookie is not written by this package, so it is cleared at the root path.
func ClearAccessCookie(w http.ResponseWriter, p CookiePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookiePath(p CookiePolicy) string {
	if p.Path == "" {
		return "/"
	}
	return p.Path
}
