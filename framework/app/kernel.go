package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	gohttp "github.com/km-arc/go-inject/framework/http"
	"github.com/km-arc/go-inject/framework/providers"
	"github.com/km-arc/go-inject/routing"
)

// Version of the framework.
const Version = "0.1.0"

// Application owns the provider lifecycle and the HTTP server.
//
//	application, err := app.New(".env")
//	application.Register(&GreetingServiceProvider{})
//	if err := application.Boot(); err != nil { ... }
//	err = application.Run()
type Application struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *container.Metrics
	Providers *container.ProviderRegistry

	mu      sync.Mutex
	server  *http.Server
	stopped bool
}

// New loads configuration and registers the framework providers.
func New(envFiles ...string) (*Application, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig is New with an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Registry:  prometheus.NewRegistry(),
		Providers: container.NewProviderRegistry(nil),
	}
	if cfg.Container.Metrics {
		a.Metrics = container.NewMetrics(cfg.Container.MetricsNamespace)
	}

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LogServiceProvider{Logger: logger},
		&providers.MetricsServiceProvider{Registry: a.Registry, Metrics: a.Metrics},
		&providers.RoutingServiceProvider{},
	}
	for _, p := range core {
		if err := a.Providers.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot builds the injector with the configured options and boots every
// eager provider.
func (a *Application) Boot() error {
	if a.Providers.Booted() {
		return nil
	}
	opts := a.Config.Container.Options(a.Logger.Named("container"), a.Metrics)
	if _, err := a.Providers.Build(opts...); err != nil {
		return err
	}
	return a.Providers.Boot()
}

// Injector returns the built injector, or nil before Boot.
func (a *Application) Injector() *container.Injector {
	return a.Providers.Injector()
}

// Router resolves the application router.
func (a *Application) Router() (*routing.Router, error) {
	if a.Injector() == nil {
		return nil, errors.New("app: not booted")
	}
	return container.Resolve[*routing.Router](a.Injector())
}

// Run boots the application if needed and serves HTTP until Shutdown. Run
// after Shutdown returns nil without listening.
func (a *Application) Run() error {
	if err := a.Boot(); err != nil {
		return err
	}
	router, err := a.Router()
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.stopped || a.server != nil {
		a.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              ":" + a.Config.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.server = srv
	a.mu.Unlock()

	a.Logger.Info("server listening",
		zap.String("app", a.Config.App.Name),
		zap.String("addr", srv.Addr),
		zap.String("env", a.Config.App.Env),
	)
	// A Shutdown that lands before ListenAndServe makes it return
	// ErrServerClosed immediately.
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, tears the injector down and flushes the logger.
func (a *Application) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.stopped = true
	srv := a.server
	a.mu.Unlock()

	var err error
	if srv != nil {
		err = multierr.Append(err, srv.Shutdown(ctx))
	}
	if inj := a.Injector(); inj != nil {
		err = multierr.Append(err, inj.Teardown())
	}
	_ = a.Logger.Sync()
	return err
}

// Environment returns APP_ENV.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsLocal() bool       { return a.Config.IsLocal() }
func (a *Application) IsProduction() bool  { return a.Config.IsProduction() }
func (a *Application) IsTesting() bool     { return a.Config.IsTesting() }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }

// Controller is an embeddable base for HTTP handlers resolved from the
// container.
type Controller struct{}

func (c *Controller) Request(r *http.Request) *gohttp.Request {
	return gohttp.NewRequest(r)
}
func (c *Controller) Response(w http.ResponseWriter) *gohttp.Response {
	return gohttp.NewResponse(w)
}
