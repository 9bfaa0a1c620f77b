package httpx

import (
	"context"

	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyIdentity ctxKey = "identity"
)

// Identity is the authenticated caller resolved by the authorization gate.
// It lives for one request only.
type Identity struct {
	Subject   string
	Active    bool
	Superuser bool
	Claims    jwtx.Claims
}

// JTI is the id of the access token that authenticated the request.
func (id Identity) JTI() string { return id.Claims.ID }

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, id.Subject)
	return context.WithValue(ctx, CtxKeyIdentity, id)
}

// IdentityFrom returns the identity attached by the gate, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok && id.Subject != ""
}
