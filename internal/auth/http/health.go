package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/pkg/authsdk"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

// readyTimeout bounds each store ping in /readyz.
const readyTimeout = 2 * time.Second

// HealthCheckHandler godoc
//
//	@Summary		API health check
//	@Tags			Health
//	@Produce		json
//	@Success		200	{boolean}	boolean	true
//	@Router			/api/v1/utils/health-check/ [get].
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, true)
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Returns 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Router			/api/v1/livez [get].
func LivezHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok"})
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the KV store and the database.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Failure		503	{object}	authsdk.HealthResponse
//	@Router			/api/v1/readyz [get].
func ReadyzHandler(stores map[string]service.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := authsdk.HealthResponse{Status: "ok", Checks: make(map[string]string, len(stores))}
		status := http.StatusOK

		for name, p := range stores {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			err := p.Ping(ctx)
			cancel()

			if err != nil {
				slogx.FromContext(r.Context()).Warn("readiness check failed", "store", name, "error", err)
				resp.Checks[name] = "error"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		httpx.WriteJSON(w, status, resp)
	}
}
