package container

import (
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/km-arc/go-inject/framework/container"

// ResolvedHook is called after a root resolution produced instance.
// A non-nil error fails that resolution.
type ResolvedHook func(k Key, instance any) error

type options struct {
	logger    *zap.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	policies  []Policy
	disabled  []string
	validate  bool
	onResolve []ResolvedHook
}

func defaultOptions() options {
	return options{
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
		policies: DefaultPolicies(),
		validate: true,
	}
}

// Option configures an Injector at Build.
type Option func(*options)

// WithLogger sets the logger. Build logs at Info, plans and singleton
// creation at Debug and failed resolutions at Warn.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records resolutions and constructions into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer used by ResolveContext.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithPolicies replaces the policy list.
func WithPolicies(policies ...Policy) Option {
	return func(o *options) { o.policies = slices.Clone(policies) }
}

// WithExtraPolicies appends policies after the current list.
func WithExtraPolicies(policies ...Policy) Option {
	return func(o *options) { o.policies = append(o.policies, policies...) }
}

// WithoutPolicies removes policies by name, regardless of option order.
func WithoutPolicies(names ...string) Option {
	return func(o *options) { o.disabled = append(o.disabled, names...) }
}

// WithoutBuildValidation skips planning every binding at Build. Errors then
// surface on the first resolution that reaches the faulty binding.
func WithoutBuildValidation() Option {
	return func(o *options) { o.validate = false }
}

// WithResolvedHook registers a hook fired after every root resolution.
func WithResolvedHook(h ResolvedHook) Option {
	return func(o *options) { o.onResolve = append(o.onResolve, h) }
}

func (o *options) activePolicies() []Policy {
	if len(o.disabled) == 0 {
		return o.policies
	}
	return slices.DeleteFunc(slices.Clone(o.policies), func(p Policy) bool {
		return slices.Contains(o.disabled, p.Name())
	})
}
