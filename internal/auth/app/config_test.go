package app

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, EnvLocal, cfg.Env)
	require.Equal(t, "sessiongate", cfg.Issuer)
	require.Equal(t, 8*24*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 5*time.Second, cfg.TokenLeeway)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, "localhost", cfg.Redis.Host)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, 6, cfg.OTPCodeLength)
	require.Equal(t, 5*time.Minute, cfg.OTPCodeTTL)
	require.Equal(t, time.Minute, cfg.OTPRateLimit)
	require.True(t, cfg.OTPLocalEcho)
	require.Equal(t, "console", cfg.SMS.Provider)
	require.Equal(t, "snsapi_login", cfg.WeChat.Scope)
	require.Equal(t, 10*time.Second, cfg.Google.Timeout)
	require.Equal(t, 30*time.Second, cfg.MonitorInterval)
	require.Equal(t, "auth.security-events", cfg.KafkaTopic)
	require.Empty(t, cfg.KafkaBrokers)
	require.False(t, cfg.OTelEnabled)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	t.Setenv("REFRESH_TOKEN_EXPIRE_DAYS", "7")
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("REDIS_SSL", "true")
	t.Setenv("REDIS_TIMEOUT", "3")
	t.Setenv("OTP_CODE_TTL_SECONDS", "120")
	t.Setenv("AUTH_PUBLIC_PATHS", "/hooks/a, ,/hooks/b")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := LoadConfig()

	require.Equal(t, EnvProduction, cfg.Env)
	require.False(t, cfg.Local())
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, "redis://cache:6380/2", cfg.Redis.URL)
	require.True(t, cfg.Redis.TLS)
	require.Equal(t, 3*time.Second, cfg.Redis.OpTimeout)
	require.Equal(t, 2*time.Minute, cfg.OTPCodeTTL)
	require.Equal(t, []string{"/hooks/a", "/hooks/b"}, cfg.PublicPaths)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestTTLVariablePrecedence(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")
	t.Setenv("REFRESH_TOKEN_EXPIRE_DAYS", "7")

	cfg := LoadConfig()
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
}

func TestValidateSecret(t *testing.T) {
	strong := strings.Repeat("s", jwtx.MinSecretLength)

	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr error
		replace bool
	}{
		{"strong", EnvProduction, strong, nil, false},
		{"placeholder in production", EnvProduction, "changethis", ErrPlaceholderSecret, false},
		{"short in staging", EnvStaging, "short", ErrShortSecret, false},
		{"placeholder in local", EnvLocal, "changethis", nil, true},
		{"empty", EnvProduction, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Env: tt.env, SecretKey: tt.secret, AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour}
			err := cfg.Validate(slogx.Discard())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(cfg.SecretKey), jwtx.MinSecretLength)
			if tt.replace {
				require.NotEqual(t, tt.secret, cfg.SecretKey)
			} else {
				require.Equal(t, tt.secret, cfg.SecretKey)
			}
		})
	}
}

func TestValidateRejectsUnknownEnv(t *testing.T) {
	cfg := Config{Env: "dev", SecretKey: strings.Repeat("s", 32)}
	require.ErrorIs(t, cfg.Validate(slogx.Discard()), ErrUnknownEnv)
}

func TestValidateClampsCodeLength(t *testing.T) {
	cfg := Config{Env: EnvLocal, OTPCodeLength: 1, AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour}
	require.NoError(t, cfg.Validate(slogx.Discard()))
	require.GreaterOrEqual(t, cfg.OTPCodeLength, 4)
}
