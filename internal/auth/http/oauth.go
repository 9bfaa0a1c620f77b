package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
)

// OAuthHandler serves third-party login for every registered provider.
type OAuthHandler struct {
	Login   *service.LoginService
	Cookies httpx.CookiePolicy

	// FrontendHost receives the browser after a successful callback.
	FrontendHost string
}

// HandleAuthorize godoc
//
//	@Summary		Start an OAuth login
//	@Description	Issues a single-use state and redirects to the provider. With format=json the URL is returned instead.
//	@Tags			OAuth
//	@Produce		json
//	@Param			provider	path		string	true	"Provider name"	Enums(wechat, google)
//	@Param			format		query		string	false	"Set to json to skip the redirect"
//	@Success		200			{object}	authsdk.AuthorizeResponse
//	@Success		307			"Redirect to the provider"
//	@Failure		404			{object}	httpx.ErrorBody	"not_found"
//	@Failure		500			{object}	httpx.ErrorBody	"provider_unconfigured"
//	@Router			/api/v1/auth/oauth/{provider}/authorize [get].
func (h *OAuthHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.Login.AuthorizeURL(r.Context(), r.PathValue("provider"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		httpx.WriteJSON(w, http.StatusOK, authsdk.AuthorizeResponse{AuthorizationURL: authURL, State: state})
		return
	}
	httpx.NoCache(w)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// HandleCallback godoc
//
//	@Summary		Finish an OAuth login
//	@Description	Consumes the state, exchanges the code with the provider and opens a session. The refresh token is set as a cookie and the browser is sent to the frontend with the access token.
//	@Tags			OAuth
//	@Param			provider	path	string	true	"Provider name"	Enums(wechat, google)
//	@Param			code		query	string	true	"Authorization code"
//	@Param			state		query	string	true	"State issued by authorize"
//	@Success		307			"Redirect to {FRONTEND_HOST}/login-success"
//	@Failure		400			{object}	httpx.ErrorBody	"invalid_state, invalid_credentials, inactive_user"
//	@Failure		404			{object}	httpx.ErrorBody	"not_found"
//	@Router			/api/v1/auth/oauth/{provider}/callback [get].
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("state") == "" {
		authsdk.ErrInvalidState.WriteError(w)
		return
	}

	res, err := h.Login.OAuthCallback(r.Context(), r.PathValue("provider"), q.Get("code"), q.Get("state"), httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := h.Login.Sessions.Codec.Now()
	httpx.WriteRefreshCookie(w, res.Pair.RefreshToken, res.Pair.RefreshExpiresIn(now), h.Cookies)
	httpx.NoCache(w)
	http.Redirect(w, r, h.successURL(res.Pair.AccessToken), http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) successURL(accessToken string) string {
	return strings.TrimSuffix(h.FrontendHost, "/") + "/login-success?" +
		url.Values{"access_token": {accessToken}}.Encode()
}
