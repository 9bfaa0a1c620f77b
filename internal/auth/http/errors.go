package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

// apiError maps a service error onto the wire error for it.
func apiError(err error) *authsdk.APIError {
	switch domain.KindOf(err) {
	case domain.InvalidCredentials:
		switch {
		case errors.Is(err, service.ErrInvalidState):
			return authsdk.ErrInvalidState
		case errors.Is(err, service.ErrPasswordUnchanged):
			return authsdk.ErrInvalidCredentials.WithDescription("new password cannot be the same as the current one")
		}
		return authsdk.ErrInvalidCredentials
	case domain.InvalidToken:
		return authsdk.ErrInvalidToken
	case domain.Expired:
		return authsdk.ErrTokenExpired
	case domain.TokenRevoked:
		return authsdk.ErrTokenRevoked
	case domain.RateLimited:
		return authsdk.ErrRateLimited.WithRetryAfter(domain.RetryAfterOf(err))
	case domain.Unconfigured:
		return authsdk.ErrProviderUnconfigured
	case domain.StoreUnavailable:
		return authsdk.ErrStoreUnavailable
	case domain.NotFound:
		return authsdk.ErrNotFound
	case domain.Inactive:
		return authsdk.ErrInactiveUser
	default:
		return authsdk.ErrServerError
	}
}

// writeServiceError logs err and writes its wire form.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeAPIError(w, r, err, apiError(err))
}

// writeAPIError is writeServiceError with a caller-adjusted wire error.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error, apiErr *authsdk.APIError) {
	l := slogx.FromContext(r.Context())
	if apiErr.StatusCode >= http.StatusInternalServerError {
		l.Error("request failed", "error", err, "code", apiErr.Code)
	} else {
		l.Debug("request rejected", "error", err, "code", apiErr.Code)
	}
	apiErr.WriteError(w)
}
