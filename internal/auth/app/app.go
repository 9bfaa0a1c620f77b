package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/sessiongate/internal/auth/http"
	"github.com/aussiebroadwan/sessiongate/internal/auth/events"
	"github.com/aussiebroadwan/sessiongate/internal/auth/oauth"
	"github.com/aussiebroadwan/sessiongate/internal/auth/service"
	"github.com/aussiebroadwan/sessiongate/internal/auth/sms"
	kvredis "github.com/aussiebroadwan/sessiongate/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/sessiongate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessiongate/internal/auth/telemetry"
	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/jwtx"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "sessiongate"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      *sqlite.Store
	kv      *kvredis.KV
	codec   *jwtx.Codec
	metrics *telemetry.Metrics
	events  events.Publisher

	shutdownTracing func(context.Context) error

	// Services
	sessionService   *service.SessionService
	loginService     *service.LoginService
	userService      *service.UserService
	bootstrapService *service.BootstrapService
	monitor          *service.StoreMonitor

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// The configuration is validated first.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	if err := app.init(); err != nil {
		return nil, err
	}
	return app, nil
}

func (app *Application) init() error {
	if err := app.cfg.Validate(app.logger); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.initTracing(ctx); err != nil {
		return err
	}
	if err := app.initDatabase(); err != nil {
		return err
	}
	if err := app.initKV(ctx); err != nil {
		_ = app.db.Close()
		return err
	}

	codec, err := jwtx.NewCodec(jwtx.CodecOptions{
		Secret: []byte(app.cfg.SecretKey),
		Issuer: app.cfg.Issuer,
		Leeway: app.cfg.TokenLeeway,
	})
	if err != nil {
		app.closeStores()
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	app.metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	app.initEvents()
	app.initServices()

	if _, err := app.bootstrapService.EnsureSuperuser(ctx); err != nil {
		app.closeStores()
		return fmt.Errorf("failed to bootstrap superuser: %w", err)
	}

	app.initHTTP()
	return nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.monitor.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"env", app.cfg.Env,
		"api_prefix", app.cfg.APIPrefix,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Handler exposes the HTTP handler, for running the service in-process.
func (app *Application) Handler() http.Handler { return app.router }

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.monitor.Stop()

	if err := app.events.Close(); err != nil {
		app.logger.Error("error closing event publisher", "error", err)
	}
	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Close releases everything New acquired without starting the server.
func (app *Application) Close() error {
	_ = app.events.Close()
	_ = app.shutdownTracing(context.Background())
	return app.closeStores()
}

func (app *Application) closeStores() error {
	var errs []error
	if app.kv != nil {
		if err := app.kv.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *Application) initTracing(ctx context.Context) error {
	app.shutdownTracing = func(context.Context) error { return nil }
	if !app.cfg.OTelEnabled {
		return nil
	}

	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		Endpoint:    app.cfg.OTelEndpoint,
		ServiceName: serviceName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.shutdownTracing = shutdown
	app.logger.Info("tracing enabled", "endpoint", app.cfg.OTelEndpoint)
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initKV connects to Redis. An unreachable server is fatal except in local
// mode, where the service starts and the gate fails open.
func (app *Application) initKV(ctx context.Context) error {
	kv, err := kvredis.New(app.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis client: %w", err)
	}
	app.kv = kv

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := kv.Ping(pctx); err != nil {
		if !app.cfg.Local() {
			_ = kv.Close()
			return fmt.Errorf("redis unreachable: %w", err)
		}
		app.logger.Error("redis unreachable, continuing in local mode", "error", err)
		return nil
	}

	app.logger.Info("redis connected")
	return nil
}

func (app *Application) initEvents() {
	if len(app.cfg.KafkaBrokers) == 0 {
		app.events = events.LogPublisher{Logger: app.logger}
		return
	}
	app.events = events.NewKafkaPublisher(app.cfg.KafkaBrokers, app.cfg.KafkaTopic, app.logger)
	app.logger.Info("publishing session events to kafka", "brokers", app.cfg.KafkaBrokers, "topic", app.cfg.KafkaTopic)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Codec:       app.codec,
		Revocations: &service.RevocationStore{KV: app.kv},
		AccessTTL:   app.cfg.AccessTokenTTL,
		RefreshTTL:  app.cfg.RefreshTokenTTL,
		Events:      app.events,
		Metrics:     app.metrics,
	}

	app.loginService = &service.LoginService{
		Store:    app.db,
		Sessions: app.sessionService,
		Codes: &service.CodeStore{
			KV:        app.kv,
			Length:    app.cfg.OTPCodeLength,
			TTL:       app.cfg.OTPCodeTTL,
			RateLimit: app.cfg.OTPRateLimit,
		},
		States: &service.StateStore{KV: app.kv},
		SMS:    sms.NewSender(app.cfg.SMS, app.logger),
		Providers: oauth.NewRegistry(
			oauth.NewWeChat(app.cfg.WeChat),
			oauth.NewGoogle(app.cfg.Google),
		),
		EchoCodes: app.cfg.Local() && app.cfg.OTPLocalEcho,
		Metrics:   app.metrics,
	}

	app.userService = &service.UserService{Store: app.db, Sessions: app.sessionService}
	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Email:    app.cfg.FirstSuperuser,
		Password: app.cfg.FirstSuperuserPassword,
	}

	app.monitor = service.NewStoreMonitor(app.stores(), app.logger, app.metrics, app.cfg.MonitorInterval)
}

func (app *Application) stores() map[string]service.Pinger {
	return map[string]service.Pinger{"kv": app.kv, "db": app.db}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpapi.RouterConfig{
			APIPrefix:      app.cfg.APIPrefix,
			FrontendHost:   app.cfg.FrontendHost,
			Local:          app.cfg.Local(),
			PublicPaths:    app.cfg.PublicPaths,
			PublicPrefixes: app.cfg.PublicPrefixes,
		},
		app.codec,
		app.sessionService.Revocations,
		app.stores(),
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.LoginService = app.loginService
	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
