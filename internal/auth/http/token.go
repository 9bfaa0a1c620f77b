package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
)

// TokenHandler serves password login, refresh and logout.
type TokenHandler struct {
	Login    *service.LoginService
	Sessions *service.SessionService
	Cookies  httpx.CookiePolicy
}

// HandleAccessToken godoc
//
//	@Summary		Password login
//	@Description	Exchanges an email and password for an access token. The refresh token is set as an HttpOnly cookie and returned in the body.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Email address"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	authsdk.TokenResponse
//	@Failure		400			{object}	httpx.ErrorBody	"invalid_credentials, inactive_user"
//	@Failure		429			{object}	httpx.ErrorBody	"rate_limited"
//	@Router			/api/v1/auth/access-token [post].
func (h *TokenHandler) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if strings.TrimSpace(email) == "" || password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	res, err := h.Login.PasswordLogin(r.Context(), email, password, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeTokens(w, res.Pair)
}

// HandleRefresh godoc
//
//	@Summary		Refresh a session
//	@Description	Exchanges a refresh token for a new pair. The refresh cookie is preferred; a JSON body is accepted when no cookie is sent. Each refresh token can be used once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	false	"Refresh token when no cookie is sent"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	httpx.ErrorBody	"invalid_token"
//	@Failure		401		{object}	httpx.ErrorBody	"not_authenticated, token_expired, token_revoked"
//	@Failure		503		{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/refresh [post].
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.ReadRefreshCookie(r)
	if !ok {
		var body authsdk.RefreshRequest
		if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		token = strings.TrimSpace(body.RefreshToken)
	}
	if token == "" {
		authsdk.ErrNotAuthenticated.WithDescription("refresh token missing").WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), token)
	if err != nil {
		apiErr := apiError(err)
		if domain.KindOf(err) == domain.InvalidToken {
			apiErr = apiErr.WithStatus(http.StatusBadRequest)
		}
		if domain.KindOf(err) != domain.StoreUnavailable {
			httpx.ClearRefreshCookie(w, h.Cookies)
		}
		writeAPIError(w, r, err, apiErr)
		return
	}
	h.writeTokens(w, pair)
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the access token used for the call and the session's refresh token, then clears the token cookies.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	false	"Refresh token when no cookie is sent"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	httpx.ErrorBody
//	@Failure		503		{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/logout [post].
func (h *TokenHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFrom(r.Context())
	if !ok {
		authsdk.ErrNotAuthenticated.WriteError(w)
		return
	}

	refresh := refreshFromRequest(r)
	if err := h.Sessions.Logout(r.Context(), id.Claims, refresh); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.ClearRefreshCookie(w, h.Cookies)
	httpx.ClearAccessCookie(w, h.Cookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out"})
}

func (h *TokenHandler) writeTokens(w http.ResponseWriter, pair domain.TokenPair) {
	writeTokenPair(w, pair, h.Sessions.Codec.Now(), h.Cookies)
}

// writeTokenPair sets the refresh cookie and writes the token response.
func writeTokenPair(w http.ResponseWriter, pair domain.TokenPair, now time.Time, cookies httpx.CookiePolicy) {
	httpx.WriteRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresIn(now), cookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "bearer",
		ExpiresIn:    int(pair.AccessExpiresIn(now).Seconds()),
		RefreshToken: pair.RefreshToken,
	})
}

// refreshFromRequest reads the refresh token from the cookie or, failing
// that, a JSON body. Errors yield "".
func refreshFromRequest(r *http.Request) string {
	if token, ok := httpx.ReadRefreshCookie(r); ok {
		return token
	}
	var body authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.RefreshToken)
}
