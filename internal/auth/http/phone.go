package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
)

// PhoneHandler serves SMS code login.
type PhoneHandler struct {
	Login   *service.LoginService
	Cookies httpx.CookiePolicy
}

// HandleSendCode godoc
//
//	@Summary		Send a login code
//	@Description	Issues a one-time login code and sends it by SMS. The response is the same whether or not the number belongs to a user. In local mode the code may be echoed back.
//	@Tags			Phone
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.PhoneCodeRequest	true	"Phone number"
//	@Success		200		{object}	authsdk.SendCodeResponse
//	@Failure		400		{object}	httpx.ErrorBody	"invalid_request"
//	@Failure		429		{object}	httpx.ErrorBody	"rate_limited"
//	@Failure		503		{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/phone/send-code [post].
func (h *PhoneHandler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	var body authsdk.PhoneCodeRequest
	if err := httpx.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.PhoneNumber) == "" {
		authsdk.ErrInvalidRequest.WithDescription("phone_number is required").WriteError(w)
		return
	}

	code, err := h.Login.SendPhoneCode(r.Context(), body.PhoneNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SendCodeResponse{Message: "Verification code sent", Code: code})
}

// HandleLogin godoc
//
//	@Summary		Log in with a phone code
//	@Description	Verifies a login code and opens a session. Unknown numbers get an account on first login.
//	@Tags			Phone
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.PhoneLoginRequest	true	"Phone number and code"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	httpx.ErrorBody	"invalid_credentials, inactive_user"
//	@Failure		503		{object}	httpx.ErrorBody	"store_unavailable"
//	@Router			/api/v1/auth/phone/login [post].
func (h *PhoneHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body authsdk.PhoneLoginRequest
	if err := httpx.DecodeJSON(r, &body); err != nil ||
		strings.TrimSpace(body.PhoneNumber) == "" || strings.TrimSpace(body.Code) == "" {
		authsdk.ErrInvalidRequest.WithDescription("phone_number and code are required").WriteError(w)
		return
	}

	res, err := h.Login.PhoneLogin(r.Context(), body.PhoneNumber, strings.TrimSpace(body.Code), httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeTokenPair(w, res.Pair, h.Login.Sessions.Codec.Now(), h.Cookies)
}
