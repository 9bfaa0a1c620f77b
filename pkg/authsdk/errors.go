package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
)

// Error codes carried in the "error" field of every error response.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeInvalidToken         = "invalid_token"
	CodeInvalidTokenID       = "invalid_token_id"
	CodeTokenExpired         = "token_expired"
	CodeTokenRevoked         = "token_revoked"
	CodeNotAuthenticated     = "not_authenticated"
	CodeRateLimited          = "rate_limited"
	CodeProviderUnconfigured = "provider_unconfigured"
	CodeStoreUnavailable     = "store_unavailable"
	CodeNotFound             = "not_found"
	CodeInactiveUser         = "inactive_user"
	CodeInvalidState         = "invalid_state"
	CodeForbidden            = "forbidden"
	CodeServerError          = "server_error"
)

// APIError is an error response from the auth service. Handlers write it
// with WriteError; the client returns it from every failed call.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`

	// RetryAfter is sent as the Retry-After header when non-zero.
	RetryAfter time.Duration `json:"-"`

	// Challenge is sent as the WWW-Authenticate header when set.
	Challenge string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another *APIError by code, so errors.Is(err, ErrTokenRevoked)
// holds for any token_revoked response.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

// WithRetryAfter returns a copy of e carrying d.
func (e *APIError) WithRetryAfter(d time.Duration) *APIError {
	c := *e
	c.RetryAfter = d
	return &c
}

// WithStatus returns a copy of e with another status code.
func (e *APIError) WithStatus(status int) *APIError {
	c := *e
	c.StatusCode = status
	return &c
}

// WriteError writes e as a JSON error response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		httpx.SetRetryAfter(w, e.RetryAfter)
	}
	if e.Challenge != "" {
		w.Header().Set("WWW-Authenticate", e.Challenge)
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        CodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        CodeInvalidCredentials,
		Description: "incorrect credentials",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        CodeInvalidToken,
		Description: "could not validate credentials",
	}

	ErrInvalidTokenID = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        CodeInvalidTokenID,
		Description: "token has no id",
	}

	ErrTokenExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        CodeTokenExpired,
		Description: "the access token expired",
		Challenge:   `Bearer error="invalid_token", error_description="the access token expired"`,
	}

	ErrTokenRevoked = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        CodeTokenRevoked,
		Description: "token has been revoked",
	}

	ErrNotAuthenticated = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        CodeNotAuthenticated,
		Description: "not authenticated",
		Challenge:   "Bearer",
	}

	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        CodeRateLimited,
		Description: "too many requests, try again later",
	}

	ErrProviderUnconfigured = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        CodeProviderUnconfigured,
		Description: "login provider is not configured",
	}

	ErrStoreUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        CodeStoreUnavailable,
		Description: "session store unavailable",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        CodeNotFound,
		Description: "user not found",
	}

	ErrInactiveUser = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        CodeInactiveUser,
		Description: "inactive user",
	}

	ErrInvalidState = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        CodeInvalidState,
		Description: "invalid or expired state",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        CodeForbidden,
		Description: "the user doesn't have enough privileges",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        CodeServerError,
		Description: "internal server error",
	}
)

// HasCode reports whether err is an *APIError with the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = CodeServerError
		apiErr.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	apiErr.Challenge = resp.Header.Get("WWW-Authenticate")
	return apiErr
}
