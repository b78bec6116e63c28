package container

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

// singletonEntry holds the instance of one singleton binding. done is only
// set after value is written, so a reader observing done needs no lock.
type singletonEntry struct {
	mu    sync.Mutex
	done  atomic.Bool
	value any
}

// request is the cache of one root resolve call.
type request struct {
	id     string
	values map[*Binding]any
}

func newRequest(id string) *request {
	return &request{id: id, values: make(map[*Binding]any)}
}

// scopeManager owns instance caches. Entries are allocated at Build for every
// singleton binding, so the entry map itself is read-only afterwards.
type scopeManager struct {
	singletons map[*Binding]*singletonEntry
	externals  map[*Binding]any

	orderMu sync.Mutex
	order   []*Binding // singleton creation order
	drained bool       // set by drain; no singleton may be cached afterwards
}

func newScopeManager(bindings []*Binding, externals map[*Binding]any) *scopeManager {
	m := &scopeManager{
		singletons: make(map[*Binding]*singletonEntry),
		externals:  externals,
	}
	for _, b := range bindings {
		if b.Scope == Singleton {
			m.singletons[b] = &singletonEntry{}
		}
	}
	return m
}

// getOrCreate returns the instance of b under its scope, invoking factory
// when the scope requires a new one. A failing factory leaves no cached
// state, so a later call retries from scratch.
func (m *scopeManager) getOrCreate(b *Binding, req *request, factory func() (any, error)) (any, bool, error) {
	switch b.Scope {
	case Singleton:
		e := m.singletons[b]
		if e.done.Load() {
			return e.value, false, nil
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.done.Load() {
			return e.value, false, nil
		}
		if m.isDrained() {
			return nil, false, ErrInjectorTornDown
		}
		v, err := factory()
		if err != nil {
			return nil, false, err
		}

		m.orderMu.Lock()
		if m.drained {
			m.orderMu.Unlock()
			return nil, false, discard(b, v)
		}
		e.value = v
		e.done.Store(true)
		m.order = append(m.order, b)
		m.orderMu.Unlock()
		return v, true, nil

	case PerRequest:
		if v, ok := req.values[b]; ok {
			return v, false, nil
		}
		v, err := factory()
		if err != nil {
			return nil, false, err
		}
		req.values[b] = v
		return v, true, nil

	case External:
		v, ok := m.externals[b]
		if !ok {
			return nil, false, &MissingExternalInstanceError{Key: b.Key}
		}
		return v, false, nil

	default:
		v, err := factory()
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

// cached returns an already available shared instance without constructing.
func (m *scopeManager) cached(b *Binding, req *request) (any, bool) {
	switch b.Scope {
	case Singleton:
		if e := m.singletons[b]; e.done.Load() {
			return e.value, true
		}
	case PerRequest:
		if req != nil {
			v, ok := req.values[b]
			return v, ok
		}
	case External:
		v, ok := m.externals[b]
		return v, ok
	}
	return nil, false
}

func (m *scopeManager) hasExternal(b *Binding) bool {
	_, ok := m.externals[b]
	return ok
}

// created returns the number of singletons constructed so far.
func (m *scopeManager) created() int {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()
	return len(m.order)
}

func (m *scopeManager) isDrained() bool {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()
	return m.drained
}

// discard releases a singleton built after drain.
func discard(b *Binding, v any) error {
	err := ErrInjectorTornDown
	if b.release != nil {
		if rerr := b.release(v); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("container: releasing [%s]: %w", b.Key, rerr))
		}
	}
	return err
}

// drain returns the created singletons newest first and forgets them.
// Singletons finishing construction later are discarded.
func (m *scopeManager) drain() []released {
	m.orderMu.Lock()
	order := m.order
	m.order = nil
	m.drained = true
	m.orderMu.Unlock()

	out := make([]released, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		b := order[i]
		out = append(out, released{binding: b, value: m.singletons[b].value})
	}
	return out
}

type released struct {
	binding *Binding
	value   any
}
