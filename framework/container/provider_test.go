package container_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type EagerSvc struct{ Name string }

type DeferredSvc struct{ Name string }

type eagerProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
	bootErr       error
}

func (p *eagerProvider) Register(b *container.Builder) {
	p.registerCalls++
	b.Singleton(container.KeyOf[*EagerSvc](), container.Factory(func() (any, error) {
		return &EagerSvc{Name: "eager"}, nil
	}))
}

func (p *eagerProvider) Boot(inj *container.Injector) error {
	p.bootCalls++
	if p.bootErr != nil {
		return p.bootErr
	}
	_, err := container.Resolve[*EagerSvc](inj)
	return err
}

// deferredProvider declares at Register but boots on first resolution.
// The first failures Boot calls fail; resolveOwn makes Boot resolve its own
// contract.
type deferredProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
	failures      int
	resolveOwn    bool
}

func (p *deferredProvider) Register(b *container.Builder) {
	p.registerCalls++
	b.Singleton(container.KeyOf[*DeferredSvc](), container.Factory(func() (any, error) {
		return &DeferredSvc{Name: "deferred-value"}, nil
	}))
}

func (p *deferredProvider) Boot(inj *container.Injector) error {
	p.bootCalls++
	if p.bootCalls <= p.failures {
		return errBoom
	}
	if p.resolveOwn {
		_, err := container.Resolve[*DeferredSvc](inj)
		return err
	}
	return nil
}

// DeferredConsumer only reaches DeferredSvc as a dependency.
type DeferredConsumer struct{ Svc *DeferredSvc }

type consumerProvider struct {
	container.BaseProvider
}

func (p *consumerProvider) Register(b *container.Builder) {
	b.Bind(container.KeyOf[*DeferredConsumer](), container.Construct(func(a container.Args) (any, error) {
		return &DeferredConsumer{Svc: container.Arg[*DeferredSvc](a, 0)}, nil
	}, container.Dep[*DeferredSvc]()))
}

func (p *deferredProvider) IsDeferred() bool { return true }
func (p *deferredProvider) Provides() []container.Key {
	return []container.Key{container.KeyOf[*DeferredSvc]()}
}

// multiProvider registers several contracts.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(b *container.Builder) {
	b.Bind(container.Named[Greeter]("en"), greeter(english{}))
	b.Bind(container.Named[Greeter]("fr"), greeter(french{}))
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisterCalled(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))

	assert.Equal(t, 1, p.registerCalls, "Register() is called immediately")
	assert.Equal(t, []container.ServiceProvider{p}, reg.Providers())
}

func TestRegistry_EagerProvider_BootCalledAfterBoot(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	assert.Zero(t, p.bootCalls, "Boot() is not called before registry.Boot()")

	require.NoError(t, reg.Boot())
	assert.Equal(t, 1, p.bootCalls)
	require.NotNil(t, reg.Injector())

	svc := container.MustResolve[*EagerSvc](reg.Injector())
	assert.Equal(t, "eager", svc.Name)
}

func TestRegistry_Boot_Idempotent(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	assert.False(t, reg.Booted())

	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Boot())

	assert.True(t, reg.Booted())
	assert.Equal(t, 1, p.bootCalls)
}

func TestRegistry_Boot_ErrorStopsBoot(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	require.NoError(t, reg.Register(&eagerProvider{bootErr: errBoom}))

	err := reg.Boot()
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, reg.Booted())
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p))

	assert.Equal(t, 1, p.registerCalls)
	assert.Len(t, reg.Providers(), 1)
}

func TestRegistry_RegisterAfterBuild_Sealed(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	_, err := reg.Build()
	require.NoError(t, err)

	err = reg.Register(&multiProvider{})
	var sealed *container.SealedRegistryError
	assert.ErrorAs(t, err, &sealed)
}

func TestRegistry_SharedBuilder(t *testing.T) {
	t.Parallel()

	b := container.NewBuilder().Instance(container.KeyOf[*Config](), &Config{DSN: "mem://"})
	reg := container.NewProviderRegistry(b)
	require.NoError(t, reg.Register(&multiProvider{}))
	assert.Same(t, b, reg.Builder())

	inj, err := reg.Build()
	require.NoError(t, err)

	all, err := container.ResolveAll[Greeter](inj)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "mem://", container.MustResolve[*Config](inj).DSN)
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_BootsOnFirstResolution(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())

	assert.Equal(t, 1, p.registerCalls, "bindings are declared before the graph is sealed")
	assert.Zero(t, p.bootCalls, "Boot() waits for the first resolution")
	assert.Empty(t, reg.Providers())

	inj := reg.Injector()
	svc := container.MustResolve[*DeferredSvc](inj)
	assert.Equal(t, "deferred-value", svc.Name)
	assert.Equal(t, 1, p.bootCalls)

	container.MustResolve[*DeferredSvc](inj)
	assert.Equal(t, 1, p.bootCalls, "deferred Boot() runs once")
}

func TestRegistry_DeferredProvider_NotBootedByOtherKeys(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	eager := &eagerProvider{}
	deferred := &deferredProvider{}
	require.NoError(t, reg.Register(eager))
	require.NoError(t, reg.Register(deferred))
	require.NoError(t, reg.Boot())

	container.MustResolve[*EagerSvc](reg.Injector())
	assert.Zero(t, deferred.bootCalls)
}

func TestRegistry_DeferredProvider_BootsWhenReachedAsDependency(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(&consumerProvider{}))
	require.NoError(t, reg.Boot())

	c := container.MustResolve[*DeferredConsumer](reg.Injector())
	assert.Equal(t, "deferred-value", c.Svc.Name)
	assert.Equal(t, 1, p.bootCalls)
}

func TestRegistry_DeferredProvider_BootsOnResolveAll(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	inj, err := reg.Build()
	require.NoError(t, err)

	all, err := container.ResolveAll[*DeferredSvc](inj)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, p.bootCalls)
}

func TestRegistry_DeferredProvider_FailedBootIsRetried(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &deferredProvider{failures: 1}
	require.NoError(t, reg.Register(p))
	inj, err := reg.Build()
	require.NoError(t, err)

	_, err = container.Resolve[*DeferredSvc](inj)
	assert.ErrorIs(t, err, errBoom)

	_, err = container.Resolve[*DeferredSvc](inj)
	require.NoError(t, err)
	assert.Equal(t, 2, p.bootCalls)

	_, err = container.Resolve[*DeferredSvc](inj)
	require.NoError(t, err)
	assert.Equal(t, 2, p.bootCalls, "a successful Boot is not repeated")
}

func TestRegistry_DeferredProvider_BootResolvesOwnContract(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &deferredProvider{resolveOwn: true}
	require.NoError(t, reg.Register(p))
	inj, err := reg.Build()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := container.Resolve[*DeferredSvc](inj)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Boot resolving its own contract did not return")
	}
	assert.Equal(t, 1, p.bootCalls)
}

func TestRegistry_DeferredProvider_ConcurrentResolversWaitForBoot(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(nil)
	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(&consumerProvider{}))
	inj, err := reg.Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := container.Resolve[*DeferredConsumer](inj)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, p.bootCalls)
}
