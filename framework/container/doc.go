// Package container provides a dependency injection engine with an explicit,
// validated dependency graph and four lifetime scopes.
//
// # Overview
//
// Bindings map a contract (a Go type plus an optional qualifier) to a
// provider: a constructor with a declared parameter list, a zero-argument
// factory, or a fixed value. Build registers every binding, seals the
// registry and validates the graph of every binding before returning an
// Injector, so configuration mistakes surface before the first instance is
// constructed.
//
// Because Go has no safe constructor introspection, dependencies are declared
// next to the constructor with Dep / DepNamed / DepAll parameters.
//
// # Lifecycle
//
//  1. Declare: b := container.NewBuilder()
//  2. Bind:    b.Singleton(container.KeyOf[*DB](), container.Construct(newDB, container.Dep[*Config]()))
//  3. Build:   inj, err := b.Build()      registry sealed, every binding validated
//  4. Resolve: db, err := container.Resolve[*DB](inj)
//  5. Release: inj.Teardown()             singleton release hooks, newest first
//
// # Scopes
//
//	Unique      new instance for every injection point, never cached
//	Singleton   created once per Injector (lazily), shared by all dependents
//	PerRequest  one instance per root Resolve call, discarded when it returns
//	External    supplied by the caller at Build, never constructed or released
//	Deduce      zero value; Value providers become External, others Unique
//
// # Bindings
//
//	// constructor with declared dependencies
//	b.Bind(container.KeyOf[Mailer](), container.Construct(func(args container.Args) (any, error) {
//	    return NewSMTPMailer(container.Arg[*Config](args, 0)), nil
//	}, container.Dep[*Config]()))
//
//	// caller-owned instance
//	b.Instance(container.KeyOf[*Config](), cfg)
//
//	// qualified bindings of the same contract
//	b.Bind(container.Named[Cache]("redis"), redisProvider)
//	b.Bind(container.Named[Cache]("memory"), memoryProvider)
//
//	// collection injection: every Handler binding, in registration order
//	container.Construct(newMux, container.DepAll[Handler]())
//
// # Contextual Binding
//
//	// when PhotoController needs a Filesystem, give it the "s3" one
//	b.When(container.KeyOf[*PhotoController]()).
//	    Needs(container.KeyOf[Filesystem]()).
//	    Give("s3")
//
// # Policies
//
// Every resolution plan passes an ordered list of policies before anything is
// constructed: binding correctness, circular dependencies, creation
// ownership and argument (lifetime) safety. Policies are plain values and can
// be replaced, removed or extended with WithPolicies, WithoutPolicies and
// WithExtraPolicies.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(b *container.Builder) {
//	    b.Singleton(container.KeyOf[Mailer](), mailerProvider)
//	}
//
//	func (p *AppServiceProvider) Boot(inj *container.Injector) error {
//	    // safe to resolve other bindings here
//	    return nil
//	}
//
//	registry := container.NewProviderRegistry(nil)
//	registry.Register(&AppServiceProvider{})
//	inj, err := registry.Build()
//	err = registry.Boot()
package container
