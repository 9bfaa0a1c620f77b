package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies every failure the session core can report. The set is
// closed; handlers switch on it to pick a response.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidCredentials
	InvalidToken
	Expired
	TokenRevoked
	RateLimited
	Unconfigured
	StoreUnavailable
	NotFound
	Inactive
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	InvalidCredentials: "invalid_credentials",
	InvalidToken:       "invalid_token",
	Expired:            "expired",
	TokenRevoked:       "token_revoked",
	RateLimited:        "rate_limited",
	Unconfigured:       "unconfigured",
	StoreUnavailable:   "store_unavailable",
	NotFound:           "not_found",
	Inactive:           "inactive",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Error is a classified failure. Op names the operation that failed and Err
// keeps the underlying cause for logs.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// RetryAfter is set for RateLimited.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials}
	ErrInvalidToken       = &Error{Kind: InvalidToken}
	ErrExpired            = &Error{Kind: Expired}
	ErrTokenRevoked       = &Error{Kind: TokenRevoked}
	ErrRateLimited        = &Error{Kind: RateLimited}
	ErrUnconfigured       = &Error{Kind: Unconfigured}
	ErrStoreUnavailable   = &Error{Kind: StoreUnavailable}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrInactive           = &Error{Kind: Inactive}
)

// E builds an *Error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// RetryAfterOf returns the retry hint of a RateLimited error.
func RetryAfterOf(err error) time.Duration {
	var de *Error
	if errors.As(err, &de) {
		return de.RetryAfter
	}
	return 0
}
