package jwtx

import (
	"errors"
	"time"
)

// MinSecretLength is the shortest HMAC secret NewCodec accepts.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("jwtx: signing secret too short")

// Codec creates and parses HS256 tokens with one process-wide secret.
// It does no I/O and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// CodecOptions configures a Codec.
type CodecOptions struct {
	// Secret is the shared HMAC key. Required, at least MinSecretLength bytes.
	Secret []byte

	// Issuer is written to iss and enforced on decode. Empty disables both.
	Issuer string

	// Leeway tolerates clock skew on exp. Zero means DefaultLeeway; use a
	// negative value to disable it.
	Leeway time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// NewCodec validates opts and returns a Codec.
func NewCodec(opts CodecOptions) (*Codec, error) {
	if len(opts.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	leeway := opts.Leeway
	switch {
	case leeway == 0:
		leeway = DefaultLeeway
	case leeway < 0:
		leeway = 0
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(opts.Secret))
	copy(secret, opts.Secret)

	return &Codec{
		secret: secret,
		issuer: opts.Issuer,
		leeway: leeway,
		now:    now,
	}, nil
}

// Now returns the codec's clock reading.
func (c *Codec) Now() time.Time { return c.now() }
