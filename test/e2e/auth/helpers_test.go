package auth_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/app"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * Each test gets its own Redis container; the service runs in-process
 * against it with a fresh SQLite database.
 */

const (
	redisImage = "redis:7-alpine"

	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!"
)

// env is one running service plus direct access to its Redis.
type env struct {
	redisURL string
	redis    *redis.Client
	dataDir  string
	baseURL  string
	client   *authsdk.SDKClient
	stop     func()
}

// setupRedisContainer starts Redis and returns its URL.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("end-to-end tests are skipped with -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, mappedPort.Port())
}

// setupService starts Redis and the service against it.
func setupService(t *testing.T, mutate ...func(*app.Config)) *env {
	t.Helper()
	redisURL := setupRedisContainer(t)

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	e := &env{redisURL: redisURL, redis: rdb, dataDir: t.TempDir()}
	e.start(t, mutate...)
	return e
}

// start boots a service instance over the env's Redis and data directory.
// Calling it again after stop simulates a restart.
func (e *env) start(t *testing.T, mutate ...func(*app.Config)) {
	t.Helper()

	cfg := app.LoadConfig()
	cfg.Env = app.EnvLocal
	cfg.SecretKey = strings.Repeat("e2e-secret-", 4)
	cfg.Redis.URL = e.redisURL
	cfg.DatabaseFile = filepath.Join(e.dataDir, "auth.db")
	cfg.PepperFile = filepath.Join(e.dataDir, "pepper")
	cfg.FirstSuperuser = adminEmail
	cfg.FirstSuperuserPassword = adminPassword
	cfg.LogLevel = "warn"
	for _, m := range mutate {
		m(&cfg)
	}

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	e.baseURL = srv.URL
	e.client = authsdk.NewSDKClient(srv.URL)

	stopped := false
	e.stop = func() {
		if stopped {
			return
		}
		stopped = true
		srv.Close()
		_ = application.Close()
	}
	t.Cleanup(e.stop)
}

func production(cfg *app.Config) { cfg.Env = app.EnvProduction }

// loginAdmin logs in as the bootstrapped superuser.
func (e *env) loginAdmin(t *testing.T) *authsdk.Session {
	t.Helper()
	sess, err := e.client.PasswordLogin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	return sess
}
