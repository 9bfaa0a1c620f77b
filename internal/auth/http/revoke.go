package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
)

// SessionHandler serves token revocation and status lookups.
type SessionHandler struct {
	Sessions *service.SessionService
}

// HandleRevokeMe godoc
//
//	@Summary		Revoke the current access token
//	@Description	Revokes the access token that authenticated the call until it would have expired.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	httpx.ErrorBody
//	@Failure		503	{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/revoke/me [post].
func (h *SessionHandler) HandleRevokeMe(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFrom(r.Context())
	if !ok {
		authsdk.ErrNotAuthenticated.WriteError(w)
		return
	}

	if err := h.Sessions.RevokeCurrent(r.Context(), id.Claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Token revoked"})
}

// HandleRevokeJTI godoc
//
//	@Summary		Revoke a token by id
//	@Description	Revokes any token id. Without ttl_seconds the revocation never expires. Superuser only.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			jti			path		string	true	"Token id"
//	@Param			ttl_seconds	query		int		false	"Seconds until the revocation entry expires"
//	@Success		200			{object}	authsdk.MessageResponse
//	@Failure		400			{object}	httpx.ErrorBody
//	@Failure		403			{object}	httpx.ErrorBody	"forbidden"
//	@Failure		503			{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/revoke/{jti} [post].
func (h *SessionHandler) HandleRevokeJTI(w http.ResponseWriter, r *http.Request) {
	jti := strings.TrimSpace(r.PathValue("jti"))
	if jti == "" {
		authsdk.ErrInvalidRequest.WithDescription("jti is required").WriteError(w)
		return
	}

	var ttl *time.Duration
	if raw := r.URL.Query().Get("ttl_seconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			authsdk.ErrInvalidRequest.WithDescription("ttl_seconds must be an integer").WriteError(w)
			return
		}
		if secs > 0 {
			d := time.Duration(secs) * time.Second
			ttl = &d
		}
	}

	if err := h.Sessions.RevokeJTI(r.Context(), jti, ttl); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Token revoked by jti"})
}

// HandleStatusMe godoc
//
//	@Summary		Revocation status of the current token
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.StatusResponse
//	@Failure		401	{object}	httpx.ErrorBody
//	@Router			/api/v1/auth/status/me [get].
func (h *SessionHandler) HandleStatusMe(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFrom(r.Context())
	if !ok {
		authsdk.ErrNotAuthenticated.WriteError(w)
		return
	}
	h.writeStatus(w, r, id.JTI())
}

// HandleStatusJTI godoc
//
//	@Summary		Revocation status of any token id
//	@Description	Superuser only.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			jti	path		string	true	"Token id"
//	@Success		200	{object}	authsdk.StatusResponse
//	@Failure		403	{object}	httpx.ErrorBody	"forbidden"
//	@Failure		503	{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/status/{jti} [get].
func (h *SessionHandler) HandleStatusJTI(w http.ResponseWriter, r *http.Request) {
	jti := strings.TrimSpace(r.PathValue("jti"))
	if jti == "" {
		authsdk.ErrInvalidRequest.WithDescription("jti is required").WriteError(w)
		return
	}
	h.writeStatus(w, r, jti)
}

func (h *SessionHandler) writeStatus(w http.ResponseWriter, r *http.Request, jti string) {
	st, err := h.Sessions.Status(r.Context(), jti)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{JTI: st.JTI, Revoked: st.Revoked})
}
