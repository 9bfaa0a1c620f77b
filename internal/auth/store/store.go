package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for durable account data.
// Sub-repositories are reached through it so a transaction scope is always
// explicit.
type Store interface {
	Users() Users
	Identities() Identities

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller must Commit or
	// Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used by password login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByPhone is used by phone login.
	GetUserByPhone(ctx context.Context, phone string) (domain.User, error)

	// CreateUser inserts u. ID and timestamps are set by the caller.
	// A duplicate email or phone number returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// RecordLogin stamps last_login_at and last_login_ip.
	RecordLogin(ctx context.Context, userID string, at time.Time, ip string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Identities interface {
	// GetIdentity returns the link for an external account.
	GetIdentity(ctx context.Context, provider, subject string) (domain.Identity, error)

	// LinkIdentity attaches an external account to a user. Linking an
	// already linked account returns ErrAlreadyExists.
	LinkIdentity(ctx context.Context, id domain.Identity) error
}

// NoExpiry is returned by KV.TTL for keys without a deadline.
const NoExpiry time.Duration = -1

// KV is the shared expiring key-value store behind revocation, one-time
// codes and OAuth state. Every call is bounded by the driver's operation
// timeout. Missing keys return ErrNotFound.
type KV interface {
	Get(ctx context.Context, key string) (string, error)

	// Set writes value. ttl <= 0 stores it without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// GetDel reads and removes key in one step.
	GetDel(ctx context.Context, key string) (string, error)

	// DelIfEqual removes key only while it still holds value and reports
	// whether it did.
	DelIfEqual(ctx context.Context, key, value string) (bool, error)

	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of key, or NoExpiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	Ping(ctx context.Context) error
	Close() error
}
