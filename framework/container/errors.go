package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInjectorTornDown is returned by every resolve call after Teardown.
	ErrInjectorTornDown = errors.New("container: injector has been torn down")

	// ErrTypeMismatch is the cause of a ProviderConstructionError when a
	// provider returns a value that does not satisfy its contract.
	ErrTypeMismatch = errors.New("container: instance does not satisfy contract")

	// ErrNilInstance is the cause of a ProviderConstructionError when a
	// provider returns nil.
	ErrNilInstance = errors.New("container: provider returned nil")

	errNoProvider = errors.New("container: binding has no provider")
)

// DuplicateBindingError is returned when a key is registered twice without
// both bindings permitting multi-binding.
type DuplicateBindingError struct {
	Key      Key
	Existing string
	Provider string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("container: duplicate binding for [%s]: %s already registered, rejected %s",
		e.Key, e.Existing, e.Provider)
}

// SealedRegistryError is returned by registrations after the injector was built.
type SealedRegistryError struct{ Key Key }

func (e *SealedRegistryError) Error() string {
	if e.Key.IsZero() {
		return "container: registry is sealed"
	}
	return fmt.Sprintf("container: registry is sealed, cannot register [%s]", e.Key)
}

// InvalidBindingError reports a binding that cannot be registered at all.
type InvalidBindingError struct {
	Key    Key
	Reason string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("container: invalid binding for [%s]: %s", e.Key, e.Reason)
}

// CircularDependencyError carries the cycle, first and last element equal.
type CircularDependencyError struct{ Path []Key }

func (e *CircularDependencyError) Error() string {
	return "container: circular dependency: " + joinKeys(e.Path)
}

// UnresolvedBindingError names the missing contract. Chain runs from the
// root request to the missing key.
type UnresolvedBindingError struct {
	Key   Key
	Chain []Key
}

func (e *UnresolvedBindingError) Error() string {
	return fmt.Sprintf("container: no binding registered for [%s] (chain %s)", e.Key, joinKeys(e.Chain))
}

// AmbiguousBindingError lists every candidate for a single-instance request
// that did not disambiguate.
type AmbiguousBindingError struct {
	Key        Key
	Candidates []string
	Chain      []Key
}

func (e *AmbiguousBindingError) Error() string {
	return fmt.Sprintf("container: ambiguous binding for [%s] (chain %s): candidates %s",
		e.Key, joinKeys(e.Chain), strings.Join(e.Candidates, ", "))
}

// MissingExternalInstanceError is returned when an External binding has no
// caller-supplied instance.
type MissingExternalInstanceError struct{ Key Key }

func (e *MissingExternalInstanceError) Error() string {
	return fmt.Sprintf("container: no external instance supplied for [%s]", e.Key)
}

// ScopeMismatchError reports an ownership violation: the engine asked to
// construct an external instance, or a shared instance requested through the
// fresh-instance channel.
type ScopeMismatchError struct {
	Key    Key
	Scope  Scope
	Reason string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("container: scope mismatch for [%s] (%s): %s", e.Key, e.Scope, e.Reason)
}

// LifetimeSafetyError reports a dependent that would outlive a dependency it
// captures. Chain runs from the dependent to the short-lived dependency.
type LifetimeSafetyError struct {
	Key        Key
	Dependency Key
	Chain      []Key
}

func (e *LifetimeSafetyError) Error() string {
	return fmt.Sprintf("container: [%s] outlives its dependency [%s]: %s", e.Key, e.Dependency, joinKeys(e.Chain))
}

// ProviderConstructionError wraps a failure raised by user construction code.
type ProviderConstructionError struct {
	Key      Key
	Provider string
	Cause    error
}

func (e *ProviderConstructionError) Error() string {
	return fmt.Sprintf("container: constructing [%s] with %s: %v", e.Key, e.Provider, e.Cause)
}

func (e *ProviderConstructionError) Unwrap() error { return e.Cause }

// Kind classifies err into a short, stable label used by metrics and the
// HTTP layer. Unknown errors are "internal".
func Kind(err error) string {
	var (
		dup        *DuplicateBindingError
		sealed     *SealedRegistryError
		invalid    *InvalidBindingError
		circular   *CircularDependencyError
		unresolved *UnresolvedBindingError
		ambiguous  *AmbiguousBindingError
		missing    *MissingExternalInstanceError
		mismatch   *ScopeMismatchError
		lifetime   *LifetimeSafetyError
		construct  *ProviderConstructionError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInjectorTornDown):
		return "torn_down"
	case errors.As(err, &construct):
		return "construction"
	case errors.As(err, &dup):
		return "duplicate"
	case errors.As(err, &sealed):
		return "sealed"
	case errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &circular):
		return "circular"
	case errors.As(err, &unresolved):
		return "unresolved"
	case errors.As(err, &ambiguous):
		return "ambiguous"
	case errors.As(err, &missing):
		return "missing_external"
	case errors.As(err, &mismatch):
		return "scope_mismatch"
	case errors.As(err, &lifetime):
		return "lifetime_safety"
	default:
		return "internal"
	}
}

func joinKeys(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}
