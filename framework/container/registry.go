package container

import (
	"reflect"
	"sync"
)

// Registry stores declared bindings. It is written during declaration only;
// once sealed, lookups are safe for concurrent use without locking.
type Registry struct {
	mu       sync.Mutex
	keys     map[Key][]*Binding
	types    map[reflect.Type][]*Binding
	bindings []*Binding
	sealed   bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		keys:  make(map[Key][]*Binding),
		types: make(map[reflect.Type][]*Binding),
	}
}

// Register adds a binding. A Deduce scope is resolved here.
//
// It fails with SealedRegistryError once the registry is sealed and with
// DuplicateBindingError when the key is already bound and either binding
// does not permit multi-binding.
func (r *Registry) Register(b Binding) error {
	_, err := r.register(b)
	return err
}

func (r *Registry) register(b Binding) (*Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, &SealedRegistryError{Key: b.Key}
	}
	if b.Key.IsZero() {
		return nil, &InvalidBindingError{Key: b.Key, Reason: "contract type is nil"}
	}
	if b.Provider.kind == providerValue && !b.Key.accepts(b.Provider.value) {
		return nil, &InvalidBindingError{Key: b.Key, Reason: "value " + b.Provider.name + " does not satisfy the contract"}
	}
	if b.Scope == Deduce {
		b.Scope = deduce(b.Provider)
	}
	if _, ok := scopeNames[b.Scope]; !ok {
		return nil, &InvalidBindingError{Key: b.Key, Reason: "unknown " + b.Scope.String()}
	}
	if b.Provider.kind == providerNone && b.Scope != External {
		return nil, &InvalidBindingError{Key: b.Key, Reason: "no provider for a " + b.Scope.String() + " binding"}
	}
	if len(b.decorators) > 0 && !b.Provider.constructs() {
		return nil, &InvalidBindingError{Key: b.Key, Reason: "decorators need a constructed instance, " + b.Provider.Kind() + " providers are never constructed"}
	}

	for _, existing := range r.keys[b.Key] {
		if !existing.Multi || !b.Multi {
			return nil, &DuplicateBindingError{
				Key:      b.Key,
				Existing: existing.Provider.String(),
				Provider: b.Provider.String(),
			}
		}
	}

	stored := b.clone()
	stored.seq = len(r.bindings)
	ptr := &stored
	r.keys[b.Key] = append(r.keys[b.Key], ptr)
	r.types[b.Key.Type] = append(r.types[b.Key.Type], ptr)
	r.bindings = append(r.bindings, ptr)
	return ptr, nil
}

func deduce(p Provider) Scope {
	if p.kind == providerValue || p.kind == providerNone {
		return External
	}
	return Unique
}

// Seal rejects every later registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Lookup returns the first binding registered under k. A miss is not an
// error; the resolver decides whether it is fatal.
func (r *Registry) Lookup(k Key) (*Binding, bool) {
	bs := r.keys[k]
	if len(bs) == 0 {
		return nil, false
	}
	return bs[0], true
}

// LookupAll returns every binding of t across qualifiers, in registration order.
func (r *Registry) LookupAll(t reflect.Type) []*Binding {
	return append([]*Binding(nil), r.types[t]...)
}

// Candidates returns every binding registered under exactly k.
func (r *Registry) Candidates(k Key) []*Binding {
	return append([]*Binding(nil), r.keys[k]...)
}

// selectBinding picks the binding a single-instance request for k receives.
// Qualified requests match their key exactly. An unqualified request with no
// unqualified binding falls back to every binding of the type, so a lone
// qualified binding still satisfies it and several are ambiguous. chain is
// the requester chain ending with k, used for diagnostics only.
func selectBinding(r *Registry, k Key, chain []Key) (*Binding, error) {
	candidates := r.Candidates(k)
	if len(candidates) == 0 && k.Qualifier == "" {
		candidates = r.LookupAll(k.Type)
	}
	switch len(candidates) {
	case 0:
		return nil, &UnresolvedBindingError{Key: k, Chain: chain}
	case 1:
		return candidates[0], nil
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Key.String() + " " + c.Provider.String()
	}
	return nil, &AmbiguousBindingError{Key: k, Candidates: names, Chain: chain}
}

// Bindings returns all bindings in registration order.
func (r *Registry) Bindings() []*Binding {
	return append([]*Binding(nil), r.bindings...)
}

// Keys returns the distinct keys in registration order.
func (r *Registry) Keys() []Key {
	seen := make(map[Key]bool, len(r.keys))
	out := make([]Key, 0, len(r.keys))
	for _, b := range r.bindings {
		if !seen[b.Key] {
			seen[b.Key] = true
			out = append(out, b.Key)
		}
	}
	return out
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int { return len(r.bindings) }
