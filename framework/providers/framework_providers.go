package providers

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/routing"
)

// MetricsPath is where RoutingServiceProvider exposes the registry.
const MetricsPath = "/metrics"

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider supplies the loaded configuration.
//
// Bound contracts:
//   - *config.Config     (external, caller owned)
//   - *config.AppConfig  (singleton view of Config.App)
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(b *container.Builder) {
	b.Instance(container.KeyOf[*config.Config](), p.Config)
	b.Singleton(container.KeyOf[*config.AppConfig](), container.Construct(func(a container.Args) (any, error) {
		return &container.Arg[*config.Config](a, 0).App, nil
	}, container.Dep[*config.Config]()))
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider supplies the application logger. The logger stays
// caller owned; the Application syncs it on shutdown.
//
// Bound contracts:
//   - *zap.Logger
type LogServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LogServiceProvider) Register(b *container.Builder) {
	b.Instance(container.KeyOf[*zap.Logger](), p.Logger)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider supplies the Prometheus registry and, when set, the
// container metrics. Boot registers the Go and process collectors together
// with the container metrics.
//
// Bound contracts:
//   - *prometheus.Registry
//   - prometheus.Gatherer   (the same registry)
//   - *container.Metrics    (only when Metrics is set)
type MetricsServiceProvider struct {
	container.BaseProvider
	Registry *prometheus.Registry
	Metrics  *container.Metrics
}

func (p *MetricsServiceProvider) Register(b *container.Builder) {
	b.Instance(container.KeyOf[*prometheus.Registry](), p.Registry)
	b.Instance(container.KeyOf[prometheus.Gatherer](), prometheus.Gatherer(p.Registry))
	if p.Metrics != nil {
		b.Instance(container.KeyOf[*container.Metrics](), p.Metrics)
	}
}

func (p *MetricsServiceProvider) Boot(inj *container.Injector) error {
	reg, err := container.Resolve[*prometheus.Registry](inj)
	if err != nil {
		return err
	}
	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	if p.Metrics != nil {
		cs = append(cs, p.Metrics.Collectors()...)
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router and mounts the metrics
// endpoint on it.
//
// Bound contracts:
//   - *routing.Router  (singleton)
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(b *container.Builder) {
	b.Singleton(container.KeyOf[*routing.Router](), container.Construct(func(a container.Args) (any, error) {
		return routing.New(container.Arg[*zap.Logger](a, 0).Named("http")), nil
	}, container.Dep[*zap.Logger]()))
}

func (p *RoutingServiceProvider) Boot(inj *container.Injector) error {
	router, err := container.Resolve[*routing.Router](inj)
	if err != nil {
		return err
	}
	if !inj.Has(container.KeyOf[prometheus.Gatherer]()) {
		return nil
	}
	g, err := container.Resolve[prometheus.Gatherer](inj)
	if err != nil {
		return err
	}
	router.Metrics(MetricsPath, g)
	return nil
}
