package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := telemetry.NewMetrics(prometheus.NewRegistry())

	m.GateRejected("token_revoked")
	m.GateRejected("token_revoked")
	m.Revoked("logout")
	m.Refresh("replayed")
	m.OTPRequested("issued")
	m.Login("phone", "ok")
	m.SetStoreUp("redis", true)
	m.SetStoreUp("sqlite", false)
	m.ObserveRequest("POST /auth/refresh", http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `sessiongate_gate_rejections_total{reason="token_revoked"} 2`)
	require.Contains(t, body, `sessiongate_revocations_total{cause="logout"} 1`)
	require.Contains(t, body, `sessiongate_refreshes_total{outcome="replayed"} 1`)
	require.Contains(t, body, `sessiongate_store_up{store="redis"} 1`)
	require.Contains(t, body, `sessiongate_store_up{store="sqlite"} 0`)
	require.Contains(t, body, `sessiongate_http_request_duration_seconds_count{route="POST /auth/refresh",status="200"} 1`)
	require.Contains(t, body, "go_goroutines")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *telemetry.Metrics
	require.NotPanics(t, func() {
		m.GateRejected("x")
		m.Revoked("x")
		m.Refresh("x")
		m.OTPRequested("x")
		m.Login("x", "y")
		m.SetStoreUp("x", true)
		m.ObserveRequest("x", 200, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLintMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	m.GateRejected("missing_token")

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{ServiceName: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupTracingEnabled(t *testing.T) {
	// Non-routable collector: nothing is exported, shutdown still returns.
	shutdown, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "test",
	})
	require.NoError(t, err)

	ctx, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.EndSpan(span, errors.New("failed"))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
