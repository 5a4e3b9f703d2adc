// Package app wires the CaseDesk HTTP host: the shell page, the login API,
// the websocket page sessions and the operational endpoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yshengliao/casedesk/auth"
	"github.com/yshengliao/casedesk/config"
	"github.com/yshengliao/casedesk/hub"
	"github.com/yshengliao/casedesk/middleware"
	"github.com/yshengliao/casedesk/nav"
	"github.com/yshengliao/casedesk/observability"
	"github.com/yshengliao/casedesk/pages"
	"github.com/yshengliao/casedesk/services"
)

// ShutdownHook is a function that gets called during shutdown
type ShutdownHook func(ctx context.Context) error

// App represents the main application instance
type App struct {
	e        *echo.Echo
	config   *config.Config
	logger   *zap.Logger
	services services.Services
	registry *prometheus.Registry

	directory  *auth.Directory
	tokens     *auth.JWTService
	table      *nav.Table
	hub        *hub.Hub
	metrics    *observability.Collector
	health     *observability.HealthChecker
	loginStore *middleware.MemoryStore
	upgrader   websocket.Upgrader

	shutdownHooks   []ShutdownHook
	shutdownTimeout time.Duration
	mu              sync.RWMutex
}

// Option defines a functional option for App
type Option func(*App) error

// NewApp creates a new application instance with the given options. A
// configuration is required.
func NewApp(opts ...Option) (*App, error) {
	app := &App{
		e:               echo.New(),
		logger:          zap.NewNop(),
		shutdownHooks:   make([]ShutdownHook, 0),
		shutdownTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if app.config == nil {
		return nil, errors.New("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if app.services == nil {
		app.services = services.NewSeededStore()
	}

	if err := app.build(); err != nil {
		return nil, err
	}
	app.setupEcho()
	app.registerRoutes()
	return app, nil
}

// WithConfig sets the application configuration
func WithConfig(cfg *config.Config) Option {
	return func(app *App) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		app.config = cfg
		return nil
	}
}

// WithLogger sets the application logger
func WithLogger(logger *zap.Logger) Option {
	return func(app *App) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

// WithServices sets the data services the pages read from.
func WithServices(svc services.Services) Option {
	return func(app *App) error {
		if svc == nil {
			return fmt.Errorf("services cannot be nil")
		}
		app.services = svc
		return nil
	}
}

// WithRegistry sets the Prometheus registry metrics are exported from.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(app *App) error {
		if reg == nil {
			return fmt.Errorf("registry cannot be nil")
		}
		app.registry = reg
		return nil
	}
}

// WithShutdownTimeout sets the shutdown timeout duration
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(app *App) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive")
		}
		app.shutdownTimeout = timeout
		return nil
	}
}

func (app *App) build() error {
	cfg := app.config

	if app.registry == nil {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	metrics, err := observability.NewCollector(app.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	app.metrics = metrics

	table, err := pages.NewTable(app.services)
	if err != nil {
		return fmt.Errorf("failed to build route table: %w", err)
	}
	app.table = table

	app.tokens = auth.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer)
	app.directory = auth.NewDirectory(UsersFromConfig(cfg.Users))
	app.loginStore = middleware.NewMemoryStore(cfg.Server.LoginRate, cfg.Server.LoginBurst)
	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
	}

	app.hub = hub.NewHub(app.logger.Named("hub"), app.metrics)
	go app.hub.Run()

	app.health = observability.NewHealthChecker(2 * time.Second)
	app.health.Register("sessions", observability.CountHealthCheck("sessions", app.hub.GetConnectedClients, 0))
	app.health.Register("users", observability.NonEmptyHealthCheck("users", app.directory.Len))
	app.health.Register("memory", observability.MemoryHealthCheck(1024))

	app.OnShutdown(func(ctx context.Context) error {
		timeout := app.shutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		return app.hub.ShutdownWithTimeout(timeout)
	})
	app.OnShutdown(func(context.Context) error {
		app.loginStore.Stop()
		return nil
	})
	return nil
}

// setupEcho configures the Echo instance with middleware and settings
func (app *App) setupEcho() {
	cfg := app.config.Server

	app.e.HideBanner = true
	app.e.HidePort = true
	app.e.Validator = &requestValidator{validate: validator.New()}
	app.e.HTTPErrorHandler = middleware.ErrorHandler(middleware.ErrorHandlerConfig{
		Logger:                         app.logger,
		HideInternalServerErrorDetails: !app.config.IsDevelopment(),
	})
	app.e.Server.ReadTimeout = cfg.ReadTimeout
	app.e.Server.WriteTimeout = cfg.WriteTimeout
	app.e.Server.IdleTimeout = cfg.IdleTimeout

	if cfg.Recovery {
		app.e.Use(echomw.Recover())
	}
	app.e.Use(middleware.RequestID())
	app.e.Use(middleware.RequestLogger(middleware.RequestLoggerConfig{
		Logger:    app.logger.Named("http"),
		SkipPaths: []string{"/health", "/metrics"},
	}))
	app.e.Use(app.metrics.Middleware())
	if cfg.GZip {
		app.e.Use(echomw.GzipWithConfig(echomw.GzipConfig{
			Skipper: func(c echo.Context) bool { return c.Path() == "/ws" },
		}))
	}
}

func (app *App) registerRoutes() {
	h := &handlers{app: app}

	app.e.GET("/health", h.health)
	app.e.GET("/metrics", echo.WrapHandler(app.metrics.Handler()))

	api := app.e.Group("/api")
	api.POST("/auth/login", h.login, middleware.RateLimitByIP(app.loginStore))
	api.GET("/me", h.me, auth.Middleware(app.tokens))

	app.e.GET("/ws", h.websocket)

	// Every other GET is a page location served by the shell.
	app.e.GET("/", h.shell)
	app.e.GET("/*", h.shell)
}

// SessionOptions returns the router settings each page session uses.
func (app *App) SessionOptions() hub.SessionOptions {
	cfg := app.config
	return hub.SessionOptions{
		Table:           app.table,
		Tokens:          app.tokens,
		Observer:        app.metrics,
		PublicPaths:     cfg.Navigation.PublicPaths,
		LoginPath:       cfg.Navigation.LoginPath,
		NavigationRate:  rate.Limit(cfg.WebSocket.NavigationRate),
		NavigationBurst: cfg.WebSocket.NavigationBurst,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		PongWait:        cfg.WebSocket.PongWait,
		PingPeriod:      cfg.WebSocket.PingPeriod,
	}
}

// ApplyConfig applies the parts of cfg that can change at runtime. Only
// the user directory is reloaded; everything else needs a restart.
func (app *App) ApplyConfig(cfg *config.Config) {
	app.directory.Replace(UsersFromConfig(cfg.Users))
	app.logger.Info("User directory reloaded", zap.Int("users", app.directory.Len()))
}

// Echo returns the underlying Echo instance
func (app *App) Echo() *echo.Echo {
	return app.e
}

// Hub returns the page session hub.
func (app *App) Hub() *hub.Hub {
	return app.hub
}

// Directory returns the login user directory.
func (app *App) Directory() *auth.Directory {
	return app.directory
}

// Tokens returns the access token service.
func (app *App) Tokens() *auth.JWTService {
	return app.tokens
}

// Run starts the HTTP server and blocks until it stops.
func (app *App) Run() error {
	address := app.config.Server.Address
	if address == "" {
		address = ":8080"
	}
	app.logger.Info("Starting server", zap.String("address", address))

	if err := app.e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RegisterShutdownHook registers a function to be called during shutdown
func (app *App) RegisterShutdownHook(hook ShutdownHook) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.shutdownHooks = append(app.shutdownHooks, hook)
}

// OnShutdown is a convenience method for registering shutdown hooks
func (app *App) OnShutdown(fn func(context.Context) error) {
	app.RegisterShutdownHook(ShutdownHook(fn))
}

// Shutdown gracefully shuts down the server
func (app *App) Shutdown(ctx context.Context) error {
	app.logger.Info("Starting graceful shutdown")

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.shutdownTimeout)
		defer cancel()
	}

	var shutdownErr error
	if err := app.runShutdownHooks(ctx); err != nil {
		app.logger.Error("Error running shutdown hooks", zap.Error(err))
		shutdownErr = err
	}

	app.logger.Info("Shutting down HTTP server")
	if err := app.e.Shutdown(ctx); err != nil {
		app.logger.Error("Error shutting down HTTP server", zap.Error(err))
		return err
	}

	app.logger.Info("Graceful shutdown completed")
	return shutdownErr
}

// runShutdownHooks executes all registered shutdown hooks in parallel
func (app *App) runShutdownHooks(ctx context.Context) error {
	app.mu.RLock()
	hooks := make([]ShutdownHook, len(app.shutdownHooks))
	copy(hooks, app.shutdownHooks)
	app.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}
	app.logger.Info("Running shutdown hooks", zap.Int("count", len(hooks)))

	var wg sync.WaitGroup
	errChan := make(chan error, len(hooks))

	for i, hook := range hooks {
		wg.Add(1)
		go func(idx int, h ShutdownHook) {
			defer wg.Done()
			if err := h(ctx); err != nil {
				errChan <- fmt.Errorf("shutdown hook %d failed: %w", idx, err)
			}
		}(i, hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown hooks timed out: %w", ctx.Err())
	}

	close(errChan)
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// UsersFromConfig converts configured accounts to directory users.
func UsersFromConfig(users []config.UserConfig) []auth.User {
	out := make([]auth.User, 0, len(users))
	for _, u := range users {
		out = append(out, auth.User{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
			Permissions:  append([]string{}, u.Permissions...),
		})
	}
	return out
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}
