package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newCodec(t *testing.T, opts jwtx.CodecOptions) *jwtx.Codec {
	t.Helper()
	if opts.Secret == nil {
		opts.Secret = testSecret
	}
	c, err := jwtx.NewCodec(opts)
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsWeakSecret(t *testing.T) {
	_, err := jwtx.NewCodec(jwtx.CodecOptions{Secret: []byte("short")})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestCreateAndDecode(t *testing.T) {
	codec := newCodec(t, jwtx.CodecOptions{Issuer: "sessiongate"})

	access, ac, err := codec.CreateAccessToken("user-1", time.Hour)
	require.NoError(t, err)
	refresh, rc, err := codec.CreateRefreshToken("user-1", 24*time.Hour)
	require.NoError(t, err)

	require.NotEqual(t, ac.ID, rc.ID)

	got, err := codec.DecodeAs(access, jwtx.UseAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, ac.ID, got.ID)
	require.Equal(t, jwtx.UseAccess, got.TokenUse)

	got, err = codec.DecodeAs(refresh, jwtx.UseRefresh)
	require.NoError(t, err)
	require.Equal(t, rc.ID, got.ID)
	require.Equal(t, jwtx.UseRefresh, got.TokenUse)
}

func TestCreateRejectsBadInput(t *testing.T) {
	codec := newCodec(t, jwtx.CodecOptions{})

	_, _, err := codec.CreateAccessToken("", time.Hour)
	require.Error(t, err)

	_, _, err = codec.CreateRefreshToken("user-1", 0)
	require.Error(t, err)
}

func TestJTIUniqueAcrossIssuances(t *testing.T) {
	// Frozen clock: every token is minted "in the same instant".
	clk := &clock{t: time.Now()}
	codec := newCodec(t, jwtx.CodecOptions{Now: clk.Now})

	const n = 500
	seen := make(map[string]struct{}, 2*n)
	for range n {
		_, a, err := codec.CreateAccessToken("same-user", time.Hour)
		require.NoError(t, err)
		_, r, err := codec.CreateRefreshToken("same-user", time.Hour)
		require.NoError(t, err)

		for _, id := range []string{a.ID, r.ID} {
			_, dup := seen[id]
			require.False(t, dup)
			seen[id] = struct{}{}
		}
	}
	require.Len(t, seen, 2*n)
}

func TestTokenUseMismatch(t *testing.T) {
	codec := newCodec(t, jwtx.CodecOptions{})

	access, _, err := codec.CreateAccessToken("user-1", time.Hour)
	require.NoError(t, err)
	refresh, _, err := codec.CreateRefreshToken("user-1", time.Hour)
	require.NoError(t, err)

	t.Run("refresh where access required", func(t *testing.T) {
		_, err := codec.DecodeAs(refresh, jwtx.UseAccess)
		require.ErrorIs(t, err, jwtx.ErrWrongTokenUse)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("access where refresh required", func(t *testing.T) {
		_, err := codec.DecodeAs(access, jwtx.UseRefresh)
		require.ErrorIs(t, err, jwtx.ErrWrongTokenUse)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})
}

func TestDecodeExpired(t *testing.T) {
	clk := &clock{t: time.Now()}
	codec := newCodec(t, jwtx.CodecOptions{Now: clk.Now})

	token, _, err := codec.CreateAccessToken("user-1", time.Minute)
	require.NoError(t, err)

	t.Run("inside leeway", func(t *testing.T) {
		clk.t = clk.t.Add(time.Minute + 2*time.Second)
		_, err := codec.Decode(token)
		require.NoError(t, err)
	})

	t.Run("past leeway", func(t *testing.T) {
		clk.t = clk.t.Add(time.Minute)
		_, err := codec.Decode(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
		require.NotErrorIs(t, err, jwtx.ErrInvalid)
		require.True(t, jwtx.IsExpired(err))
	})
}

func TestDecodeInvalid(t *testing.T) {
	codec := newCodec(t, jwtx.CodecOptions{Issuer: "sessiongate"})
	valid, claims, err := codec.CreateAccessToken("user-1", time.Hour)
	require.NoError(t, err)

	other := newCodec(t, jwtx.CodecOptions{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		Issuer: "sessiongate",
	})
	foreign, _, err := other.CreateAccessToken("user-1", time.Hour)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	noExp := jwtx.Claims{TokenUse: jwtx.UseAccess}
	noExp.Subject = "user-1"
	noExp.ID = jwtx.NewJTI()
	noExp.Issuer = "sessiongate"
	noExpToken, err := codec.Sign(noExp)
	require.NoError(t, err)

	wrongIss := newCodec(t, jwtx.CodecOptions{Issuer: "someone-else"})
	wrongIssToken, _, err := wrongIss.CreateAccessToken("user-1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"signed with another secret", foreign},
		{"HS512 instead of HS256", hs512},
		{"alg none", unsigned},
		{"tampered signature", tampered},
		{"missing exp", noExpToken},
		{"issuer mismatch", wrongIssToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			require.ErrorIs(t, err, jwtx.ErrInvalid)
			require.NotErrorIs(t, err, jwtx.ErrExpired)
		})
	}
}
