package authsdk

import "time"

// TokenResponse is returned by every login and by refresh. RefreshToken is
// also delivered as an HttpOnly cookie; the body copy is for clients
// without a cookie jar.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshRequest is the JSON body accepted by POST /auth/refresh when no
// refresh cookie is sent.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PhoneCodeRequest asks for a login code.
type PhoneCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// PhoneLoginRequest logs in with a delivered code.
type PhoneLoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

// SendCodeResponse acknowledges a code request. Code is only filled in
// local mode with echo enabled.
type SendCodeResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ChangePasswordRequest is the body of PATCH /users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse reports whether a token id is revoked.
type StatusResponse struct {
	JTI     string `json:"jti"`
	Revoked bool   `json:"revoked"`
}

// AuthorizeResponse is returned by the OAuth authorize endpoint when JSON
// is requested instead of a redirect.
type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
