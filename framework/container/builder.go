package container

import (
	"go.uber.org/multierr"
)

// ── Builder ───────────────────────────────────────────────────────────────────

// Builder collects declarations for Build. It is the surface service
// providers register against. Declaration errors are collected and reported
// by Build, so chained calls need no error checks. A Builder is not safe for
// concurrent use.
type Builder struct {
	bindings  []Binding
	externals []Instance

	// contextual: consumer → dependency → qualifier to give
	contextual map[Key]map[Key]string

	// key → decorators appended to every binding of that key
	extenders map[Key][]func(any) (any, error)

	err   error
	built bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		contextual: make(map[Key]map[Key]string),
		extenders:  make(map[Key][]func(any) (any, error)),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind declares a binding. Without InScope the scope is deduced: Unique for
// constructors and factories, External for values.
//
//	b.Bind(container.KeyOf[Hasher](), container.Factory(func() (any, error) {
//	    return sha.New(), nil
//	}))
func (b *Builder) Bind(k Key, p Provider, opts ...BindOption) *Builder {
	return b.Add(BindKey(k, p, opts...))
}

// Singleton declares a binding created once per Injector.
//
//	b.Singleton(container.KeyOf[*sql.DB](), container.Construct(openDB, container.Dep[*Config]()))
func (b *Builder) Singleton(k Key, p Provider, opts ...BindOption) *Builder {
	return b.Bind(k, p, append([]BindOption{InScope(Singleton)}, opts...)...)
}

// PerRequest declares a binding created once per root resolve call.
func (b *Builder) PerRequest(k Key, p Provider, opts ...BindOption) *Builder {
	return b.Bind(k, p, append([]BindOption{InScope(PerRequest)}, opts...)...)
}

// Instance supplies a caller-owned value. The engine never constructs or
// releases it.
//
//	b.Instance(container.KeyOf[*config.Config](), cfg)
func (b *Builder) Instance(k Key, v any) *Builder {
	return b.Supply(Instance{Key: k, Value: v})
}

// External declares an External binding whose instance must be supplied to
// Build, typically by another provider calling Instance.
func (b *Builder) External(k Key) *Builder {
	return b.Add(Binding{Key: k, Scope: External})
}

// Add appends prepared bindings.
func (b *Builder) Add(bindings ...Binding) *Builder {
	if b.sealed(bindings...) {
		return b
	}
	for _, bd := range bindings {
		b.bindings = append(b.bindings, bd.clone())
	}
	return b
}

// Supply appends external instances.
func (b *Builder) Supply(instances ...Instance) *Builder {
	for _, in := range instances {
		if b.built {
			b.err = multierr.Append(b.err, &SealedRegistryError{Key: in.Key})
			continue
		}
		b.externals = append(b.externals, in)
	}
	return b
}

// ── Contextual binding and extenders ──────────────────────────────────────────

// When starts a contextual binding for consumer.
func (b *Builder) When(consumer Key) *ContextualBuilder {
	return &ContextualBuilder{builder: b, consumer: consumer}
}

func (b *Builder) give(consumer, dep Key, qualifier string) {
	if b.built {
		b.err = multierr.Append(b.err, &SealedRegistryError{Key: consumer})
		return
	}
	if _, ok := b.contextual[consumer]; !ok {
		b.contextual[consumer] = make(map[Key]string)
	}
	b.contextual[consumer][dep] = qualifier
}

// Extend decorates every instance constructed for k. Only constructed
// bindings can be extended: Build rejects an extender for a Value or
// External binding, or for a key without a binding, with InvalidBindingError.
//
//	b.Extend(container.KeyOf[Logger](), func(l any) (any, error) {
//	    return logging.WithTimestamps(l.(Logger)), nil
//	})
func (b *Builder) Extend(k Key, fn func(instance any) (any, error)) *Builder {
	if b.built {
		b.err = multierr.Append(b.err, &SealedRegistryError{Key: k})
		return b
	}
	b.extenders[k] = append(b.extenders[k], fn)
	return b
}

// ── Build ─────────────────────────────────────────────────────────────────────

// Err returns the declaration errors collected so far.
func (b *Builder) Err() error { return b.err }

// Build applies contextual bindings and extenders, then builds the Injector.
// A builder can be built once.
func (b *Builder) Build(opts ...Option) (*Injector, error) {
	if b.built {
		return nil, &SealedRegistryError{}
	}
	b.built = true
	if b.err != nil {
		return nil, b.err
	}

	extended := make(map[Key]bool, len(b.extenders))
	bindings := make([]Binding, 0, len(b.bindings))
	for _, bd := range b.bindings {
		bd = bd.clone()
		if rewrite, ok := b.contextual[bd.Key]; ok {
			for i, p := range bd.Provider.params {
				if q, ok := rewrite[p.Key]; ok && !p.All {
					bd.Provider.params[i].Key.Qualifier = q
				}
			}
		}
		if fns, ok := b.extenders[bd.Key]; ok {
			bd.decorators = append(bd.decorators, fns...)
			extended[bd.Key] = true
		}
		bindings = append(bindings, bd)
	}
	for k := range b.extenders {
		if !extended[k] {
			return nil, &InvalidBindingError{Key: k, Reason: "extended contract has no declared binding"}
		}
	}
	return Build(bindings, b.externals, opts...)
}

func (b *Builder) sealed(bindings ...Binding) bool {
	if !b.built {
		return false
	}
	for _, bd := range bindings {
		b.err = multierr.Append(b.err, &SealedRegistryError{Key: bd.Key})
	}
	return true
}
