package http

import (
	"net/http"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
)

// MinPasswordLength applies to new passwords.
const MinPasswordLength = 8

type UserHandler struct {
	Users   *service.UserService
	Cookies httpx.CookiePolicy
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	httpx.ErrorBody
//	@Router			/api/v1/users/me [get].
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		authsdk.ErrNotAuthenticated.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the password and ends the session used for the call. Other sessions stay valid.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	httpx.ErrorBody	"invalid_request, invalid_credentials"
//	@Failure		401		{object}	httpx.ErrorBody
//	@Router			/api/v1/users/me/password [patch].
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFrom(r.Context())
	user, uok := userFrom(r.Context())
	if !ok || !uok {
		authsdk.ErrNotAuthenticated.WriteError(w)
		return
	}

	var body authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &body); err != nil || body.CurrentPassword == "" {
		authsdk.ErrInvalidRequest.WithDescription("current_password and new_password are required").WriteError(w)
		return
	}
	if len(body.NewPassword) < MinPasswordLength {
		authsdk.ErrInvalidRequest.WithDescription("new_password must be at least 8 characters").WriteError(w)
		return
	}

	refresh, _ := httpx.ReadRefreshCookie(r)
	if err := h.Users.ChangePassword(r.Context(), user, body.CurrentPassword, body.NewPassword, id.Claims, refresh); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.ClearRefreshCookie(w, h.Cookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password updated successfully"})
}

func userResponse(u domain.User) authsdk.UserResponse {
	resp := authsdk.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if u.PhoneNumber != nil {
		resp.PhoneNumber = *u.PhoneNumber
	}
	return resp
}
