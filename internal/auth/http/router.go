package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
	"github.com/aussiebroadwan/sessiongate/pkg/httpx"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"

	_ "github.com/aussiebroadwan/sessiongate/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig is the part of the service configuration the router reads.
type RouterConfig struct {
	APIPrefix    string
	FrontendHost string

	// Local enables the fail-open gate, the private routes and plain HTTP
	// cookies.
	Local bool

	PublicPaths    []string
	PublicPrefixes []string
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg         RouterConfig
	verifier    jwtx.Verifier
	revocations RevocationChecker
	stores      map[string]service.Pinger
	metrics     *telemetry.Metrics
	logger      *slog.Logger

	LoginService   *service.LoginService
	SessionService *service.SessionService
	UserService    *service.UserService
}

func NewRouter(
	cfg RouterConfig,
	verifier jwtx.Verifier,
	revocations RevocationChecker,
	stores map[string]service.Pinger,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Router {
	cfg.APIPrefix = "/" + strings.Trim(cfg.APIPrefix, "/")
	if cfg.APIPrefix == "/" {
		cfg.APIPrefix = ""
	}

	return &Router{
		Mux:         http.NewServeMux(),
		cfg:         cfg,
		verifier:    verifier,
		revocations: revocations,
		stores:      stores,
		metrics:     metrics,
		logger:      logger,
	}
}

// Gate returns the authorization gate for this router's configuration.
func (r *Router) Gate() *Gate {
	paths, prefixes := NewGateAllowList(r.cfg.APIPrefix, r.cfg.Local, r.cfg.PublicPaths, r.cfg.PublicPrefixes)
	return &Gate{
		Verifier:       r.verifier,
		Revocations:    r.revocations,
		Users:          r.UserService,
		Metrics:        r.metrics,
		PublicPaths:    paths,
		PublicPrefixes: prefixes,
		FailOpen:       r.cfg.Local,
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Services must be set first.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.Gate().Middleware(),
		instrument(r.metrics),
	}

	r.registerAuth()
	r.registerPhone()
	r.registerOAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("GET /metrics",
		httpx.Chain(r.metrics.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Sessiongate Authentication Service API
//	@version					0.1.0
//	@description				Session lifecycle service: password, SMS code and OAuth login, single-use refresh rotation and token revocation.
//	@description
//	@description				Every route outside the public allow-list requires an unrevoked access token.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sessiongate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) cookies() httpx.CookiePolicy {
	return httpx.CookiePolicy{Path: r.cfg.APIPrefix, Secure: !r.cfg.Local}
}

func (r *Router) api(method, path string) string {
	return method + " " + r.cfg.APIPrefix + path
}

func (r *Router) registerAuth() {
	tokens := &TokenHandler{Login: r.LoginService, Sessions: r.SessionService, Cookies: r.cookies()}
	sessions := &SessionHandler{Sessions: r.SessionService}

	// Password login is charged to the IP and the submitted username.
	r.Mux.Handle(r.api("POST", "/auth/access-token"),
		httpx.Chain(http.HandlerFunc(tokens.HandleAccessToken),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle(r.api("POST", "/auth/refresh"),
		httpx.Chain(http.HandlerFunc(tokens.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle(r.api("POST", "/auth/logout"),
		httpx.Chain(http.HandlerFunc(tokens.HandleLogout),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle(r.api("POST", "/auth/revoke/me"),
		httpx.Chain(http.HandlerFunc(sessions.HandleRevokeMe),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle(r.api("POST", "/auth/revoke/{jti}"),
		httpx.Chain(http.HandlerFunc(sessions.HandleRevokeJTI),
			requireSuperuser,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle(r.api("GET", "/auth/status/me"),
		httpx.Chain(http.HandlerFunc(sessions.HandleStatusMe),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle(r.api("GET", "/auth/status/{jti}"),
		httpx.Chain(http.HandlerFunc(sessions.HandleStatusJTI),
			requireSuperuser,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPhone() {
	h := &PhoneHandler{Login: r.LoginService, Cookies: r.cookies()}

	// Both are charged per IP and phone number so one caller cannot burn
	// another number's budget.
	r.Mux.Handle(r.api("POST", "/auth/phone/send-code"),
		httpx.Chain(http.HandlerFunc(h.HandleSendCode),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "phone_number"),
		),
	)
	r.Mux.Handle(r.api("POST", "/auth/phone/login"),
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "phone_number"),
		),
	)
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{Login: r.LoginService, Cookies: r.cookies(), FrontendHost: r.cfg.FrontendHost}

	r.Mux.Handle(r.api("GET", "/auth/oauth/{provider}/authorize"),
		httpx.Chain(http.HandlerFunc(h.HandleAuthorize),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle(r.api("GET", "/auth/oauth/{provider}/callback"),
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UserHandler{Users: r.UserService, Cookies: r.cookies()}

	r.Mux.Handle(r.api("GET", "/users/me"),
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle(r.api("PATCH", "/users/me/password"),
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes may be polled often.
	r.Mux.Handle(r.api("GET", "/utils/health-check/"),
		httpx.Chain(http.HandlerFunc(HealthCheckHandler),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle(r.api("GET", "/livez"),
		httpx.Chain(http.HandlerFunc(LivezHandler),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle(r.api("GET", "/readyz"),
		httpx.Chain(ReadyzHandler(r.stores),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

// instrument records request latency per matched route. It must sit
// directly in front of the mux, which fills in r.Pattern.
func instrument(m *telemetry.Metrics) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, rec.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
