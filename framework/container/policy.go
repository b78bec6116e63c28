package container

// ── Policy contract ───────────────────────────────────────────────────────────

// Policy is one validation check run over a resolution plan before anything
// is constructed. Check must be pure: it may only read its input.
type Policy interface {
	Name() string
	Check(in PolicyInput) error
}

// PolicyInput is everything a policy may inspect.
type PolicyInput struct {
	Plan     *Plan
	Registry *Registry
	// External reports whether a caller-supplied instance exists for an
	// External binding. Nil means instances are not known yet.
	External func(b *Binding) bool
}

// Names of the built-in policies, usable with WithoutPolicies.
const (
	PolicyBindingCorrectness = "binding-correctness"
	PolicyCircular           = "circular-dependencies"
	PolicyCreationOwnership  = "creation-ownership"
	PolicyArgumentSafety     = "argument-safety"
)

type policyFunc struct {
	name string
	fn   func(PolicyInput) error
}

func (p policyFunc) Name() string                { return p.name }
func (p policyFunc) Check(in PolicyInput) error { return p.fn(in) }

// NewPolicy adapts a function into a Policy.
//
//	noUnique := container.NewPolicy("no-unique-roots", func(in container.PolicyInput) error {
//	    if in.Plan.RootStep().Binding.Scope == container.Unique { return errUniqueRoot }
//	    return nil
//	})
func NewPolicy(name string, fn func(PolicyInput) error) Policy {
	return policyFunc{name: name, fn: fn}
}

// DefaultPolicies returns the built-in checks in evaluation order.
func DefaultPolicies() []Policy {
	return []Policy{
		NewPolicy(PolicyBindingCorrectness, checkBindingCorrectness),
		NewPolicy(PolicyCircular, checkCircular),
		NewPolicy(PolicyCreationOwnership, checkCreationOwnership),
		NewPolicy(PolicyArgumentSafety, checkArgumentSafety),
	}
}

// runPolicies stops at the first violation.
func runPolicies(policies []Policy, in PolicyInput) error {
	for _, p := range policies {
		if err := p.Check(in); err != nil {
			return err
		}
	}
	return nil
}

// ── Built-in policies ─────────────────────────────────────────────────────────

func checkBindingCorrectness(in PolicyInput) error {
	plan := in.Plan
	if len(plan.Steps) == 0 {
		return &UnresolvedBindingError{Key: plan.Root, Chain: []Key{plan.Root}}
	}
	if !plan.Direct {
		b, err := selectBinding(in.Registry, plan.Root, []Key{plan.Root})
		if err != nil {
			return err
		}
		if b != plan.RootStep().Binding {
			return &InvalidBindingError{Key: plan.Root, Reason: "plan root is not the selected binding"}
		}
	}

	for _, s := range plan.Steps {
		if s.Binding == nil {
			return &UnresolvedBindingError{Key: s.Key, Chain: []Key{plan.Root, s.Key}}
		}
		for _, a := range s.Args {
			if a.Param.All {
				continue
			}
			chain := []Key{s.Key, a.Param.Key}
			b, err := selectBinding(in.Registry, a.Param.Key, chain)
			if err != nil {
				return err
			}
			if len(a.Steps) != 1 || plan.Steps[a.Steps[0]].Binding != b {
				return &InvalidBindingError{Key: s.Key, Reason: "parameter " + a.Param.String() + " is not wired to its selected binding"}
			}
		}
		if s.Binding.Scope == External && !s.Binding.Provider.constructs() && in.External != nil && !in.External(s.Binding) {
			return &MissingExternalInstanceError{Key: s.Key}
		}
	}
	return nil
}

func checkCircular(in PolicyInput) error {
	const (
		white = iota
		grey
		black
	)
	steps := in.Plan.Steps
	color := make([]int, len(steps))
	var stack []Key

	var visit func(i int) error
	visit = func(i int) error {
		color[i] = grey
		stack = append(stack, steps[i].Key)
		for _, a := range steps[i].Args {
			for _, j := range a.Steps {
				switch color[j] {
				case grey:
					start := 0
					for k := range stack {
						if stack[k] == steps[j].Key {
							start = k
							break
						}
					}
					path := append(append([]Key(nil), stack[start:]...), steps[j].Key)
					return &CircularDependencyError{Path: path}
				case white:
					if err := visit(j); err != nil {
						return err
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range steps {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkCreationOwnership(in PolicyInput) error {
	for _, s := range in.Plan.Steps {
		if s.Binding.Scope == External && s.Binding.Provider.constructs() {
			return &ScopeMismatchError{
				Key:    s.Key,
				Scope:  External,
				Reason: "external binding declares " + s.Binding.Provider.String() + "; external instances are never constructed",
			}
		}
	}
	if in.Plan.Fresh {
		root := in.Plan.RootStep().Binding
		if root.Scope != Unique {
			return &ScopeMismatchError{
				Key:    root.Key,
				Scope:  root.Scope,
				Reason: "shared instance requested through the fresh-instance channel",
			}
		}
	}
	return nil
}

// checkArgumentSafety rejects singletons capturing per_request instances,
// directly or through unique intermediates constructed for them.
func checkArgumentSafety(in PolicyInput) error {
	steps := in.Plan.Steps
	for i, s := range steps {
		if s.Binding.Scope != Singleton {
			continue
		}
		seen := make(map[int]bool)
		var walk func(j int, chain []Key) error
		walk = func(j int, chain []Key) error {
			for _, a := range steps[j].Args {
				for _, d := range a.Steps {
					if seen[d] {
						continue
					}
					seen[d] = true
					dep := steps[d]
					next := append(append([]Key(nil), chain...), dep.Key)
					switch dep.Binding.Scope {
					case PerRequest:
						return &LifetimeSafetyError{Key: s.Key, Dependency: dep.Key, Chain: next}
					case Unique:
						if err := walk(d, next); err != nil {
							return err
						}
					}
				}
			}
			return nil
		}
		if err := walk(i, []Key{s.Key}); err != nil {
			return err
		}
	}
	return nil
}
