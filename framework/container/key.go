package container

import (
	"fmt"
	"reflect"
)

// ── Keys ──────────────────────────────────────────────────────────────────────

// Key identifies a node of the dependency graph: a contract type plus an
// optional qualifier distinguishing several bindings of the same contract.
//
//	container.KeyOf[Logger]()          // "app.Logger"
//	container.Named[Logger]("audit")   // "app.Logger[name=audit]"
type Key struct {
	Type      reflect.Type
	Qualifier string
}

// KeyOf returns the unqualified key for T.
func KeyOf[T any]() Key {
	return Key{Type: reflect.TypeFor[T]()}
}

// Named returns the key for T under the given qualifier.
func Named[T any](qualifier string) Key {
	return Key{Type: reflect.TypeFor[T](), Qualifier: qualifier}
}

// Unqualified returns k without its qualifier.
func (k Key) Unqualified() Key { return Key{Type: k.Type} }

// IsZero reports whether k has no type.
func (k Key) IsZero() bool { return k.Type == nil }

func (k Key) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}
	if k.Qualifier == "" {
		return name
	}
	return name + "[name=" + k.Qualifier + "]"
}

// accepts reports whether instance can be handed out under k.
func (k Key) accepts(instance any) bool {
	if instance == nil {
		return false
	}
	return reflect.TypeOf(instance).AssignableTo(k.Type)
}

// ── Scopes ────────────────────────────────────────────────────────────────────

// Scope is the lifetime discipline of a binding.
type Scope int

const (
	// Deduce picks a scope from the provider at registration time:
	// Value providers become External, everything else Unique.
	Deduce Scope = iota
	// Unique creates a new instance for every injection point.
	Unique
	// Singleton creates one instance per Injector, lazily.
	Singleton
	// PerRequest creates one instance per root resolve call.
	PerRequest
	// External instances are supplied by the caller and never owned by the engine.
	External
)

var scopeNames = map[Scope]string{
	Deduce:     "deduce",
	Unique:     "unique",
	Singleton:  "singleton",
	PerRequest: "per_request",
	External:   "external",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// ParseScope parses the names produced by Scope.String.
func ParseScope(name string) (Scope, error) {
	for s, n := range scopeNames {
		if n == name {
			return s, nil
		}
	}
	return Deduce, fmt.Errorf("container: unknown scope %q", name)
}

// shared reports whether instances of the scope are cached and handed to
// more than one dependent.
func (s Scope) shared() bool {
	return s == Singleton || s == PerRequest || s == External
}
