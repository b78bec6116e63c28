package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Injector ──────────────────────────────────────────────────────────────────

// Injector resolves instances from a sealed registry. It is safe for
// concurrent use; each root resolve call has its own per_request cache.
type Injector struct {
	*engine

	// booting is set on the view handed to a deferred provider's Boot, so
	// resolutions made by that Boot do not wait for it to finish.
	booting *deferredProvider
}

type engine struct {
	reg      *Registry
	scopes   *scopeManager
	opts     options
	policies []Policy
	log      *zap.Logger

	plans  sync.Map // planKey → *Plan
	direct sync.Map // *Binding → *Plan
	closed atomic.Bool

	// activate runs before a plan executes, once for every key it reaches.
	activate func(inj *Injector, k Key) error
}

type planKey struct {
	key   Key
	fresh bool
}

// Build registers bindings and external instances, seals the registry and
// validates the graph of every binding. The returned Injector is immutable.
//
// An instance whose key has no binding is declared as an External binding on
// the fly. An instance for a binding the engine constructs is rejected with
// ScopeMismatchError.
func Build(bindings []Binding, externals []Instance, opts ...Option) (*Injector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	reg := NewRegistry()
	for _, b := range bindings {
		if err := reg.Register(b); err != nil {
			return nil, err
		}
	}

	ext := make(map[*Binding]any)
	for _, b := range reg.bindings {
		if b.Scope == External && b.Provider.kind == providerValue {
			ext[b] = b.Provider.value
		}
	}
	for _, in := range externals {
		if err := supply(reg, ext, in); err != nil {
			return nil, err
		}
	}
	reg.Seal()

	inj := &Injector{engine: &engine{
		reg:      reg,
		scopes:   newScopeManager(reg.bindings, ext),
		opts:     o,
		policies: o.activePolicies(),
		log:      o.logger.Named("container"),
	}}

	if o.validate {
		for _, b := range reg.bindings {
			if _, err := inj.planFor(b); err != nil {
				return nil, err
			}
		}
	}

	inj.log.Info("container built",
		zap.Int("bindings", reg.Len()),
		zap.Int("externals", len(ext)),
		zap.Int("policies", len(inj.policies)),
		zap.Bool("validated", o.validate),
	)
	return inj, nil
}

func supply(reg *Registry, ext map[*Binding]any, in Instance) error {
	if in.Key.IsZero() {
		return &InvalidBindingError{Key: in.Key, Reason: "external instance has no contract"}
	}
	if !in.Key.accepts(in.Value) {
		return &InvalidBindingError{Key: in.Key, Reason: fmt.Sprintf("external instance %T does not satisfy the contract", in.Value)}
	}

	candidates := reg.Candidates(in.Key)
	switch len(candidates) {
	case 0:
		b, err := reg.register(Binding{Key: in.Key, Scope: External})
		if err != nil {
			return err
		}
		ext[b] = in.Value
		return nil
	case 1:
	default:
		_, err := selectBinding(reg, in.Key, []Key{in.Key})
		return err
	}

	b := candidates[0]
	if b.Scope != External {
		return &ScopeMismatchError{Key: b.Key, Scope: b.Scope, Reason: "external instance supplied for a binding the engine constructs"}
	}
	if _, ok := ext[b]; ok {
		return &DuplicateBindingError{Key: b.Key, Existing: b.Provider.String(), Provider: fmt.Sprintf("instance(%T)", in.Value)}
	}
	ext[b] = in.Value
	return nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns the instance bound to k.
func (inj *Injector) Resolve(k Key) (any, error) {
	return inj.ResolveContext(context.Background(), k)
}

// ResolveContext is Resolve recorded as a "container.resolve" span.
func (inj *Injector) ResolveContext(ctx context.Context, k Key) (any, error) {
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	req := newRequest(id)
	_, span := inj.opts.tracer.Start(ctx, "container.resolve", trace.WithAttributes(
		attribute.String("container.contract", k.String()),
		attribute.String("container.request_id", req.id),
	))
	defer span.End()

	v, err := inj.resolve(k, false, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		return nil, err
	}
	return v, nil
}

// Make returns a fresh instance through the fresh-instance channel. Only
// Unique bindings may be made; shared scopes fail with ScopeMismatchError.
func (inj *Injector) Make(k Key) (any, error) {
	return inj.resolve(k, true, newRequest(uuid.NewString()))
}

// Plan returns the validated resolution plan for k without constructing.
func (inj *Injector) Plan(k Key) (*Plan, error) {
	if inj.closed.Load() {
		return nil, ErrInjectorTornDown
	}
	return inj.plan(k, false)
}

// Has reports whether a single-instance request for k would select a binding.
// A torn down injector has nothing.
func (inj *Injector) Has(k Key) bool {
	if inj.closed.Load() {
		return false
	}
	_, err := selectBinding(inj.reg, k, nil)
	return err == nil
}

// Keys returns every bound key in registration order.
func (inj *Injector) Keys() []Key { return inj.reg.Keys() }

func (inj *Injector) resolve(k Key, fresh bool, req *request) (any, error) {
	if inj.closed.Load() {
		return nil, ErrInjectorTornDown
	}
	start := time.Now()

	plan, err := inj.plan(k, fresh)
	var v any
	if err == nil {
		v, err = inj.execute(plan, req)
	}
	if err == nil && inj.closed.Load() {
		err = ErrInjectorTornDown
	}
	if err == nil {
		err = inj.fireResolved(k, v)
	}

	inj.opts.metrics.observeResolve(k, err, time.Since(start))
	if err != nil {
		inj.log.Warn("resolution failed",
			zap.Stringer("contract", k),
			zap.String("request_id", req.id),
			zap.String("kind", Kind(err)),
			zap.Error(err),
		)
		return nil, err
	}
	return v, nil
}

func (inj *Injector) fireResolved(k Key, v any) error {
	for _, h := range inj.opts.onResolve {
		if err := h(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (inj *Injector) plan(k Key, fresh bool) (*Plan, error) {
	pk := planKey{key: k, fresh: fresh}
	if p, ok := inj.plans.Load(pk); ok {
		return p.(*Plan), nil
	}
	p, err := BuildPlan(inj.reg, k)
	if err != nil {
		return nil, err
	}
	p.Fresh = fresh
	if err := inj.check(p); err != nil {
		return nil, err
	}
	inj.log.Debug("plan built", zap.Stringer("root", k), zap.Bool("fresh", fresh), zap.Int("steps", p.Len()))
	inj.plans.Store(pk, p)
	return p, nil
}

func (inj *Injector) planFor(b *Binding) (*Plan, error) {
	if p, ok := inj.direct.Load(b); ok {
		return p.(*Plan), nil
	}
	p, err := BuildPlanFor(inj.reg, b)
	if err != nil {
		return nil, err
	}
	if err := inj.check(p); err != nil {
		return nil, err
	}
	inj.direct.Store(b, p)
	return p, nil
}

func (inj *Injector) check(p *Plan) error {
	return runPolicies(inj.policies, PolicyInput{
		Plan:     p,
		Registry: inj.reg,
		External: inj.scopes.hasExternal,
	})
}

// ── Execution ─────────────────────────────────────────────────────────────────

// execution materialises one plan. Shared instances are memoised per step;
// unique steps are constructed again for every consumer.
type execution struct {
	inj    *Injector
	plan   *Plan
	req    *request
	values []any
	ready  []bool
}

func (inj *Injector) execute(plan *Plan, req *request) (any, error) {
	if err := inj.activateSteps(plan); err != nil {
		return nil, err
	}
	ex := &execution{
		inj:    inj,
		plan:   plan,
		req:    req,
		values: make([]any, len(plan.Steps)),
		ready:  make([]bool, len(plan.Steps)),
	}
	return ex.instance(len(plan.Steps) - 1)
}

func (inj *Injector) activateSteps(p *Plan) error {
	if inj.activate == nil {
		return nil
	}
	for _, s := range p.Steps {
		if err := inj.activate(inj, s.Binding.Key); err != nil {
			return err
		}
		if s.Key != s.Binding.Key {
			if err := inj.activate(inj, s.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ex *execution) instance(i int) (any, error) {
	if ex.ready[i] {
		return ex.values[i], nil
	}
	s := ex.plan.Steps[i]
	v, created, err := ex.inj.scopes.getOrCreate(s.Binding, ex.req, func() (any, error) {
		args, err := ex.args(s)
		if err != nil {
			return nil, err
		}
		return ex.inj.construct(s.Binding, args)
	})
	if err != nil {
		return nil, err
	}
	if created {
		ex.inj.opts.metrics.observeConstruct(s.Binding.Scope)
		if s.Binding.Scope == Singleton {
			ex.inj.log.Debug("singleton created", zap.Stringer("contract", s.Key), zap.String("request_id", ex.req.id))
		}
	}
	if s.Binding.Scope != Unique {
		ex.values[i] = v
		ex.ready[i] = true
	}
	return v, nil
}

func (ex *execution) args(s Step) (Args, error) {
	args := make(Args, len(s.Args))
	for n, a := range s.Args {
		if !a.Param.All {
			v, err := ex.instance(a.Steps[0])
			if err != nil {
				return nil, err
			}
			args[n] = v
			continue
		}
		all := make([]any, 0, len(a.Steps))
		for _, j := range a.Steps {
			v, err := ex.instance(j)
			if err != nil {
				return nil, err
			}
			all = append(all, v)
		}
		args[n] = all
	}
	return args, nil
}

// construct runs user code for b. Panics and errors are reported as
// ProviderConstructionError; the result must satisfy the contract.
func (inj *Injector) construct(b *Binding, args Args) (v any, err error) {
	fail := func(cause error) error {
		return &ProviderConstructionError{Key: b.Key, Provider: b.Provider.String(), Cause: cause}
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fail(fmt.Errorf("panic: %v", r))
		}
	}()

	v, err = b.Provider.invoke(args)
	if err != nil {
		return nil, fail(err)
	}
	for _, decorate := range b.decorators {
		if v, err = decorate(v); err != nil {
			return nil, fail(err)
		}
	}
	if v == nil {
		return nil, fail(ErrNilInstance)
	}
	if !b.Key.accepts(v) {
		return nil, fail(fmt.Errorf("%w: got %T, want %s", ErrTypeMismatch, v, b.Key.Type))
	}
	return v, nil
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// Teardown releases singleton instances newest first through their OnRelease
// hooks and invalidates the injector. External instances are never released.
// Every hook runs; their errors are combined. Calling it again is a no-op.
// A singleton whose construction is still running is released as soon as it
// is built, and the resolution that built it fails with ErrInjectorTornDown.
func (inj *Injector) Teardown() error {
	if !inj.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs error
	instances := inj.scopes.drain()
	for _, r := range instances {
		if r.binding.release == nil {
			continue
		}
		if err := r.binding.release(r.value); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("container: releasing [%s]: %w", r.binding.Key, err))
		}
	}
	inj.opts.metrics.resetSingletons()
	inj.log.Info("container torn down", zap.Int("singletons", len(instances)), zap.Error(errs))
	return errs
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// Resolve returns the instance of T, optionally under a qualifier.
//
//	mailer, err := container.Resolve[Mailer](inj)
//	cache, err := container.Resolve[Cache](inj, "redis")
func Resolve[T any](inj *Injector, qualifier ...string) (T, error) {
	var zero T
	v, err := inj.Resolve(keyFor[T](qualifier))
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// MustResolve is Resolve that panics on failure.
func MustResolve[T any](inj *Injector, qualifier ...string) T {
	v, err := Resolve[T](inj, qualifier...)
	if err != nil {
		panic(err)
	}
	return v
}

// Make returns a fresh Unique instance of T.
func Make[T any](inj *Injector, qualifier ...string) (T, error) {
	var zero T
	v, err := inj.Make(keyFor[T](qualifier))
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// ResolveAll returns one instance per binding of T across qualifiers, in
// registration order, all within a single request. No binding yields an
// empty slice.
func ResolveAll[T any](inj *Injector) ([]T, error) {
	if inj.closed.Load() {
		return nil, ErrInjectorTornDown
	}
	req := newRequest(uuid.NewString())
	bindings := inj.reg.LookupAll(reflect.TypeFor[T]())
	out := make([]T, 0, len(bindings))
	for _, b := range bindings {
		plan, err := inj.planFor(b)
		if err != nil {
			return nil, err
		}
		v, err := inj.execute(plan, req)
		if err != nil {
			return nil, err
		}
		out = append(out, v.(T))
	}
	if inj.closed.Load() {
		return nil, ErrInjectorTornDown
	}
	return out, nil
}

func keyFor[T any](qualifier []string) Key {
	if len(qualifier) > 0 {
		return Named[T](qualifier[0])
	}
	return KeyOf[T]()
}
