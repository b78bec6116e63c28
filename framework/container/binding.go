package container

import (
	"reflect"
	"runtime"
	"strings"
)

// ── Parameters ────────────────────────────────────────────────────────────────

// Param declares one constructor dependency.
type Param struct {
	Key Key
	// All requests every binding of Key.Type across qualifiers
	// (collection injection) instead of a single instance.
	All bool
}

// Dep declares a dependency on the unqualified binding of T.
func Dep[T any]() Param { return Param{Key: KeyOf[T]()} }

// DepNamed declares a dependency on the binding of T qualified by name.
func DepNamed[T any](qualifier string) Param { return Param{Key: Named[T](qualifier)} }

// DepKey declares a dependency on an arbitrary key.
func DepKey(k Key) Param { return Param{Key: k} }

// DepAll declares a dependency on every binding of T, in registration order.
func DepAll[T any]() Param { return Param{Key: KeyOf[T](), All: true} }

func (p Param) String() string {
	if p.All {
		return "[]" + p.Key.Unqualified().String()
	}
	return p.Key.String()
}

// Args holds resolved constructor arguments in declaration order.
// Collection parameters arrive as []any.
type Args []any

// Arg returns argument i as T. The engine checks every instance against its
// contract before handing it out, so the assertion only fails on a mismatched
// parameter declaration.
func Arg[T any](args Args, i int) T {
	v, _ := args[i].(T)
	return v
}

// ArgAll returns collection argument i as []T.
func ArgAll[T any](args Args, i int) []T {
	raw, _ := args[i].([]any)
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// ── Providers ─────────────────────────────────────────────────────────────────

type providerKind int

const (
	providerNone providerKind = iota
	providerConstructor
	providerFactory
	providerValue
)

// ConstructFunc builds an instance from its resolved arguments.
type ConstructFunc func(args Args) (any, error)

// Provider is the recipe that produces an instance for a binding.
type Provider struct {
	kind      providerKind
	name      string
	params    []Param
	construct ConstructFunc
	value     any
}

// Construct returns a constructor provider. params declare, in order, the
// contracts the engine resolves and passes to fn.
func Construct(fn ConstructFunc, params ...Param) Provider {
	return Provider{
		kind:      providerConstructor,
		name:      funcName(fn),
		params:    append([]Param(nil), params...),
		construct: fn,
	}
}

// Factory returns a provider for a factory without dependencies.
func Factory(fn func() (any, error)) Provider {
	return Provider{
		kind: providerFactory,
		name: funcName(fn),
		construct: func(Args) (any, error) {
			return fn()
		},
	}
}

// Value returns a provider for a fixed, already built value.
func Value(v any) Provider {
	name := "<nil>"
	if v != nil {
		name = reflect.TypeOf(v).String()
	}
	return Provider{kind: providerValue, name: name, value: v}
}

// Params returns a copy of the declared parameter list.
func (p Provider) Params() []Param { return append([]Param(nil), p.params...) }

// Kind describes the provider: constructor, factory, value or none.
func (p Provider) Kind() string {
	switch p.kind {
	case providerConstructor:
		return "constructor"
	case providerFactory:
		return "factory"
	case providerValue:
		return "value"
	default:
		return "none"
	}
}

func (p Provider) String() string {
	if p.name == "" {
		return p.Kind()
	}
	return p.Kind() + "(" + p.name + ")"
}

// constructs reports whether invoking the provider runs user code.
func (p Provider) constructs() bool {
	return p.kind == providerConstructor || p.kind == providerFactory
}

func (p Provider) invoke(args Args) (any, error) {
	if p.kind == providerValue {
		return p.value, nil
	}
	if p.construct == nil {
		return nil, errNoProvider
	}
	return p.construct(args)
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ── Bindings ──────────────────────────────────────────────────────────────────

// Binding maps a contract key to exactly one provider under a scope.
type Binding struct {
	Key      Key
	Provider Provider
	Scope    Scope
	// Multi allows several bindings under the same key; they are reachable
	// through collection injection or individually by qualifier.
	Multi bool

	release    func(instance any) error
	decorators []func(instance any) (any, error)
	seq        int
}

// BindOption configures a binding at declaration time.
type BindOption func(*Binding)

// InScope sets the binding scope.
func InScope(s Scope) BindOption {
	return func(b *Binding) { b.Scope = s }
}

// Qualified sets the binding qualifier.
func Qualified(qualifier string) BindOption {
	return func(b *Binding) { b.Key.Qualifier = qualifier }
}

// MultiBind permits several providers for the same key.
func MultiBind() BindOption {
	return func(b *Binding) { b.Multi = true }
}

// OnRelease declares a hook Teardown calls for every singleton instance the
// binding created.
func OnRelease(fn func(instance any) error) BindOption {
	return func(b *Binding) { b.release = fn }
}

// Decorate wraps every instance the binding constructs, in declaration order.
// Registering a decorated Value or External binding fails with
// InvalidBindingError.
func Decorate(fn func(instance any) (any, error)) BindOption {
	return func(b *Binding) { b.decorators = append(b.decorators, fn) }
}

// Bind declares a binding for T.
//
//	container.Bind[Mailer](container.Construct(newMailer, container.Dep[*Config]()),
//	    container.InScope(container.Singleton))
func Bind[T any](p Provider, opts ...BindOption) Binding {
	return BindKey(KeyOf[T](), p, opts...)
}

// BindKey declares a binding for an arbitrary key.
func BindKey(k Key, p Provider, opts ...BindOption) Binding {
	b := Binding{Key: k, Provider: p}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Params returns the provider's declared parameters.
func (b *Binding) Params() []Param { return b.Provider.Params() }

func (b *Binding) String() string {
	return b.Key.String() + " -> " + b.Provider.String() + " (" + b.Scope.String() + ")"
}

// clone copies b so that later edits do not alias the caller's slices.
func (b Binding) clone() Binding {
	b.Provider.params = append([]Param(nil), b.Provider.params...)
	b.decorators = append([]func(any) (any, error)(nil), b.decorators...)
	return b
}

// ── External instances ────────────────────────────────────────────────────────

// Instance is a caller-owned value supplied to Build for an External binding.
type Instance struct {
	Key   Key
	Value any
}

// Supply returns the external instance v for T.
func Supply[T any](v T) Instance {
	return Instance{Key: KeyOf[T](), Value: v}
}

// SupplyNamed returns the external instance v for T under a qualifier.
func SupplyNamed[T any](qualifier string, v T) Instance {
	return Instance{Key: Named[T](qualifier), Value: v}
}
