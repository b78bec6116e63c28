package container

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related declarations.
//
// Register runs while the graph is still open and only declares bindings.
// Boot runs after the Injector is built, making it safe to resolve other
// bindings inside Boot.
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(b *container.Builder) {
//	    b.Singleton(container.KeyOf[*Logger](), container.Construct(newLogger, container.Dep[*Config]()))
//	}
//
//	func (p *AppServiceProvider) Boot(inj *container.Injector) error {
//	    logger, err := container.Resolve[*Logger](inj)
//	    if err != nil {
//	        return err
//	    }
//	    logger.Info("application booted")
//	    return nil
//	}
type ServiceProvider interface {
	// Register declares bindings. Do NOT resolve anything here.
	Register(b *Builder)

	// Boot is called once the Injector exists.
	Boot(inj *Injector) error

	// Provides lists the keys this provider declares. Deferred providers
	// boot on the first resolution of any of them.
	Provides() []Key

	// IsDeferred reports whether Boot waits for the first resolution of a
	// provided key instead of running in ProviderRegistry.Boot.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred. Embed it and override what you need.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Injector) error { return nil }
func (p *BaseProvider) Provides() []Key        { return nil }
func (p *BaseProvider) IsDeferred() bool       { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry runs the register → build → boot lifecycle of service
// providers against one Builder.
//
// Deferred providers still declare their bindings before Build because the
// graph is frozen afterwards; only their Boot is deferred. It runs before the
// first resolution that reaches one of their keys, as root or as a
// dependency.
type ProviderRegistry struct {
	builder    *Builder
	injector   *Injector
	eager      []ServiceProvider
	deferred   map[Key]*deferredProvider
	registered map[ServiceProvider]bool
	booted     bool
}

type deferredProvider struct {
	provider ServiceProvider
	mu       sync.Mutex
	booted   atomic.Bool
}

// NewProviderRegistry creates a registry declaring into b, or into a new
// Builder when b is nil.
func NewProviderRegistry(b *Builder) *ProviderRegistry {
	if b == nil {
		b = NewBuilder()
	}
	return &ProviderRegistry{
		builder:    b,
		deferred:   make(map[Key]*deferredProvider),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method. Registering the
// same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.injector != nil {
		return &SealedRegistryError{}
	}
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	provider.Register(r.builder)

	if !provider.IsDeferred() {
		r.eager = append(r.eager, provider)
		return nil
	}
	d := &deferredProvider{provider: provider}
	for _, k := range provider.Provides() {
		r.deferred[k] = d
	}
	return nil
}

// Build builds the Injector and attaches deferred boot to it.
func (r *ProviderRegistry) Build(opts ...Option) (*Injector, error) {
	if r.injector != nil {
		return r.injector, nil
	}
	inj, err := r.builder.Build(opts...)
	if err != nil {
		return nil, err
	}
	if len(r.deferred) > 0 {
		inj.activate = r.bootDeferred
	}
	r.injector = inj
	return inj, nil
}

// bootDeferred boots the deferred provider of k once. Concurrent callers wait
// for the Boot in progress; a failed Boot is retried by the next resolution.
// The provider's own Boot resolves through a view that skips it.
func (r *ProviderRegistry) bootDeferred(inj *Injector, k Key) error {
	d, ok := r.deferred[k]
	if !ok || d.booted.Load() || inj.booting == d {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.booted.Load() {
		return nil
	}
	if err := d.provider.Boot(&Injector{engine: inj.engine, booting: d}); err != nil {
		return fmt.Errorf("container: booting deferred provider %T: %w", d.provider, err)
	}
	d.booted.Store(true)
	return nil
}

// Boot builds the Injector if needed, then boots every eager provider in
// registration order. It stops at the first error.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	inj, err := r.Build()
	if err != nil {
		return err
	}
	for _, provider := range r.eager {
		if err := provider.Boot(inj); err != nil {
			return fmt.Errorf("container: booting provider %T: %w", provider, err)
		}
	}
	r.booted = true
	return nil
}

// Booted returns true if Boot() has completed.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }

// Builder returns the builder providers declare into.
func (r *ProviderRegistry) Builder() *Builder { return r.builder }

// Injector returns the built injector, or nil before Build.
func (r *ProviderRegistry) Injector() *Injector { return r.injector }
