package httpx

import (
	"net/http"
	"strings"
)

// Names used when looking for an access token outside the Authorization
// header.
const (
	AccessTokenParam  = "access_token"
	AccessTokenCookie = "access_token"
)

// TokenSource says where ExtractBearer found the token.
type TokenSource string

const (
	SourceNone   TokenSource = ""
	SourceHeader TokenSource = "header"
	SourceQuery  TokenSource = "query"
	SourceCookie TokenSource = "cookie"
)

// ExtractBearer looks for an access token in the Authorization header, then
// the access_token query parameter, then the access_token cookie. The first
// non-empty one wins.
func ExtractBearer(r *http.Request) (string, TokenSource) {
	if authz := r.Header.Get("Authorization"); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		if tok := strings.TrimSpace(authz[7:]); tok != "" {
			return tok, SourceHeader
		}
	}

	if tok := strings.TrimSpace(r.URL.Query().Get(AccessTokenParam)); tok != "" {
		return tok, SourceQuery
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		if tok := strings.TrimSpace(c.Value); tok != "" {
			return tok, SourceCookie
		}
	}

	return "", SourceNone
}
