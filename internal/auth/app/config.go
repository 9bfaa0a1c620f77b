package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/oauth"
	kvredis "github.com/aussiebroadwan/sessiongate/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/sessiongate/internal/auth/sms"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/joho/godotenv"
)

const (
	EnvLocal      = "local"
	EnvStaging    = "staging"
	EnvProduction = "production"

	placeholderSecret = "changethis"
)

var (
	ErrPlaceholderSecret = errors.New("SECRET_KEY is the placeholder value")
	ErrShortSecret       = fmt.Errorf("SECRET_KEY must be at least %d bytes", jwtx.MinSecretLength)
	ErrUnknownEnv        = errors.New("ENVIRONMENT must be local, staging or production")
)

type Config struct {
	Env       string // Deployment mode (local, staging, production) (default: local)
	SecretKey string // Required outside local: HMAC key for tokens
	Issuer    string // Issuer claim (default: sessiongate)

	AccessTokenTTL  time.Duration // default: 8 days
	RefreshTokenTTL time.Duration // default: 30 days
	TokenLeeway     time.Duration // Clock skew tolerated on exp (default: 5s)

	APIPrefix      string   // default: /api/v1
	FrontendHost   string   // OAuth callbacks land here (default: http://localhost:5173)
	PublicPaths    []string // Extra exact paths the gate lets through
	PublicPrefixes []string // Extra path prefixes the gate lets through

	Redis kvredis.Config

	OTPCodeLength int
	OTPCodeTTL    time.Duration
	OTPRateLimit  time.Duration
	OTPLocalEcho  bool // Echo codes in send-code responses (local only)

	SMS    sms.Config
	WeChat oauth.WeChatConfig
	Google oauth.GoogleConfig

	DatabaseFile string // Path to the SQLite database (default: auth.db)
	PepperFile   string // Password hashing pepper (default: pepper)

	FirstSuperuser         string
	FirstSuperuserPassword string

	LogLevel            string        // default: info
	LogFormat           string        // default: json
	Port                int           // default: 8080
	ShutdownGracePeriod time.Duration // default: 10s
	MonitorInterval     time.Duration // Store health check interval (default: 30s)

	KafkaBrokers []string // Security events go to the log when empty
	KafkaTopic   string   // default: auth.security-events

	OTelEnabled  bool
	OTelEndpoint string
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() Config {
	_ = godotenv.Load()

	oauthTimeout := getEnvDurationOrDefault("OAUTH_HTTP_TIMEOUT", 10*time.Second)

	cfg := Config{
		Env:       strings.ToLower(getEnvOrDefault("ENVIRONMENT", EnvLocal)),
		SecretKey: os.Getenv("SECRET_KEY"),
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "sessiongate"),

		AccessTokenTTL:  accessTTL(),
		RefreshTokenTTL: refreshTTL(),
		TokenLeeway:     getEnvDurationOrDefault("TOKEN_LEEWAY", jwtx.DefaultLeeway),

		APIPrefix:      getEnvOrDefault("API_V1_STR", "/api/v1"),
		FrontendHost:   getEnvOrDefault("FRONTEND_HOST", "http://localhost:5173"),
		PublicPaths:    getEnvList("AUTH_PUBLIC_PATHS"),
		PublicPrefixes: getEnvList("AUTH_PUBLIC_PREFIXES"),

		Redis: kvredis.Config{
			URL:       os.Getenv("REDIS_URL"),
			Host:      getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:      getEnvIntOrDefault("REDIS_PORT", 6379),
			DB:        getEnvIntOrDefault("REDIS_DB", 0),
			Password:  os.Getenv("REDIS_PASSWORD"),
			TLS:       getEnvBoolOrDefault("REDIS_SSL", false),
			OpTimeout: getEnvDurationOrDefault("REDIS_TIMEOUT", 5*time.Second),
		},

		OTPCodeLength: getEnvIntOrDefault("OTP_CODE_LENGTH", 6),
		OTPCodeTTL:    getEnvSecondsOrDefault("OTP_CODE_TTL_SECONDS", 300),
		OTPRateLimit:  getEnvSecondsOrDefault("OTP_RATE_LIMIT_SECONDS", 60),
		OTPLocalEcho:  getEnvBoolOrDefault("OTP_LOCAL_ECHO", true),

		SMS: sms.Config{
			Provider:                getEnvOrDefault("SMS_PROVIDER", sms.ProviderConsole),
			AliyunAccessKeyID:       os.Getenv("ALIYUN_ACCESS_KEY_ID"),
			AliyunAccessKeySecret:   os.Getenv("ALIYUN_ACCESS_KEY_SECRET"),
			AliyunSignName:          os.Getenv("ALIYUN_SMS_SIGN_NAME"),
			AliyunTemplateCodeLogin: os.Getenv("ALIYUN_SMS_TEMPLATE_CODE_LOGIN"),
			AliyunRegionID:          getEnvOrDefault("ALIYUN_REGION_ID", sms.DefaultAliyunRegion),
			AliyunTemplateCodeKey:   getEnvOrDefault("ALIYUN_SMS_TEMPLATE_CODE_KEY", sms.DefaultAliyunCodeKey),
			AliyunEndpoint:          getEnvOrDefault("ALIYUN_SMS_ENDPOINT", sms.DefaultAliyunEndpoint),
			Timeout:                 getEnvDurationOrDefault("ALIYUN_SMS_TIMEOUT", sms.DefaultAliyunTimeout),
		},
		WeChat: oauth.WeChatConfig{
			AppID:       os.Getenv("WECHAT_APP_ID"),
			AppSecret:   os.Getenv("WECHAT_APP_SECRET"),
			RedirectURI: os.Getenv("WECHAT_REDIRECT_URI"),
			Scope:       getEnvOrDefault("WECHAT_SCOPE", oauth.DefaultWeChatScope),
			Timeout:     oauthTimeout,
		},
		Google: oauth.GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
			Timeout:      oauthTimeout,
		},

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		FirstSuperuser:         os.Getenv("FIRST_SUPERUSER"),
		FirstSuperuserPassword: os.Getenv("FIRST_SUPERUSER_PASSWORD"),

		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		MonitorInterval:     getEnvDurationOrDefault("MONITOR_INTERVAL", 30*time.Second),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "auth.security-events"),

		OTelEnabled:  getEnvBoolOrDefault("OTEL_ENABLED", false),
		OTelEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
	}

	return cfg
}

// Local reports whether the service runs in local development mode.
func (c Config) Local() bool { return c.Env == EnvLocal }

// Validate checks the configuration and fills in what can be generated.
// Outside local mode the placeholder or a short secret is an error; in
// local mode it is replaced by a random secret with a warning, as is an
// empty secret in any mode.
func (c *Config) Validate(logger *slog.Logger) error {
	switch c.Env {
	case EnvLocal, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, c.Env)
	}

	switch {
	case c.SecretKey == "":
		logger.Warn("SECRET_KEY is not set; using a random secret, tokens will not survive a restart")
		c.SecretKey = cryptox.MustGenerateToken(jwtx.MinSecretLength)
	case c.SecretKey == placeholderSecret && !c.Local():
		return ErrPlaceholderSecret
	case len(c.SecretKey) < jwtx.MinSecretLength && !c.Local():
		return ErrShortSecret
	case c.SecretKey == placeholderSecret || len(c.SecretKey) < jwtx.MinSecretLength:
		logger.Warn("SECRET_KEY is unsafe for anything but local development; using a random secret")
		c.SecretKey = cryptox.MustGenerateToken(jwtx.MinSecretLength)
	}

	if c.FirstSuperuserPassword == placeholderSecret {
		if !c.Local() {
			return errors.New("FIRST_SUPERUSER_PASSWORD is the placeholder value")
		}
		logger.Warn("FIRST_SUPERUSER_PASSWORD is the placeholder value")
	}

	c.OTPCodeLength = cryptox.ClampCodeDigits(c.OTPCodeLength)
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// accessTTL prefers ACCESS_TOKEN_TTL and falls back to
// ACCESS_TOKEN_EXPIRE_MINUTES.
func accessTTL() time.Duration {
	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		return getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL)
	}
	if m := getEnvIntOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 0); m > 0 {
		return time.Duration(m) * time.Minute
	}
	return jwtx.DefaultAccessTokenTTL
}

// refreshTTL prefers REFRESH_TOKEN_TTL and falls back to
// REFRESH_TOKEN_EXPIRE_DAYS.
func refreshTTL() time.Duration {
	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		return getEnvDurationOrDefault("REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL)
	}
	if d := getEnvIntOrDefault("REFRESH_TOKEN_EXPIRE_DAYS", 0); d > 0 {
		return time.Duration(d) * 24 * time.Hour
	}
	return jwtx.DefaultRefreshTokenTTL
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvSecondsOrDefault(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvIntOrDefault(key, defaultSeconds)) * time.Second
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
