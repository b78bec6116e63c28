package config

import (
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-inject/framework/container"
)

// Options translates the container settings into injector options.
// metrics may be nil; it is only attached when Metrics is enabled.
func (c ContainerConfig) Options(logger *zap.Logger, metrics *container.Metrics) []container.Option {
	opts := []container.Option{container.WithLogger(logger)}
	if !c.ValidateOnBuild {
		opts = append(opts, container.WithoutBuildValidation())
	}
	if len(c.DisabledPolicies) > 0 {
		opts = append(opts, container.WithoutPolicies(c.DisabledPolicies...))
	}
	if c.Metrics && metrics != nil {
		opts = append(opts, container.WithMetrics(metrics))
	}
	if !c.Tracing {
		opts = append(opts, container.WithTracer(noop.NewTracerProvider().Tracer("")))
	}
	return opts
}

// Logger builds the application logger: development encoding for local
// environments, JSON otherwise, at LogLevel.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Container.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.IsLocal() || c.App.Debug {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.InitialFields = map[string]any{"app": c.App.Name, "env": c.App.Env}
	return zc.Build()
}
