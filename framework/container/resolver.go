package container

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ── Resolution plan ───────────────────────────────────────────────────────────

// StepArg links one declared parameter to the plan steps satisfying it.
// A single-instance parameter has exactly one step; a collection parameter
// has one per binding, possibly none.
type StepArg struct {
	Param Param
	Steps []int
}

// Step is one node of a resolution plan.
type Step struct {
	Key     Key
	Binding *Binding
	Args    []StepArg
}

// Plan is the ordered construction recipe for one root request. Steps are in
// depth-first completion order: every dependency precedes its dependents and
// the root is last.
type Plan struct {
	Root  Key
	Steps []Step
	// Fresh marks a plan requested through the fresh-instance channel (Make).
	Fresh bool
	// Direct marks a plan built for a binding rather than selected by key.
	Direct bool
}

// RootStep returns the step of the requested binding.
func (p *Plan) RootStep() Step { return p.Steps[len(p.Steps)-1] }

// Len returns the number of distinct bindings in the plan.
func (p *Plan) Len() int { return len(p.Steps) }

func (p *Plan) String() string {
	var sb strings.Builder
	p.write(&sb, false)
	return sb.String()
}

// Print writes a coloured listing of the plan to w. Colour is disabled
// automatically when w is not a terminal (see color.NoColor).
func (p *Plan) Print(w io.Writer) {
	p.write(w, true)
}

func (p *Plan) write(w io.Writer, colored bool) {
	var (
		head  = fmt.Sprint
		key   = fmt.Sprint
		scope = fmt.Sprint
		dim   = fmt.Sprint
	)
	if colored {
		head = color.New(color.Bold).SprintFunc()
		key = color.New(color.FgCyan).SprintFunc()
		scope = color.New(color.FgYellow).SprintFunc()
		dim = color.New(color.Faint).SprintFunc()
	}

	fmt.Fprintf(w, "%s %s (%d steps)\n", head("plan"), key(p.Root), len(p.Steps))
	for i, s := range p.Steps {
		fmt.Fprintf(w, "  %2d. %s %s %s\n", i, key(s.Key), scope(s.Binding.Scope), dim(s.Binding.Provider))
		for _, a := range s.Args {
			fmt.Fprintf(w, "      <- %s %v\n", a.Param, a.Steps)
		}
	}
}

// ── Resolver ──────────────────────────────────────────────────────────────────

// BuildPlan selects the binding for k and plans its dependency graph.
func BuildPlan(reg *Registry, k Key) (*Plan, error) {
	b, err := selectBinding(reg, k, []Key{k})
	if err != nil {
		return nil, err
	}
	return buildPlan(reg, k, b)
}

// BuildPlanFor plans the dependency graph of a specific binding.
func BuildPlanFor(reg *Registry, b *Binding) (*Plan, error) {
	p, err := buildPlan(reg, b.Key, b)
	if err != nil {
		return nil, err
	}
	p.Direct = true
	return p, nil
}

func buildPlan(reg *Registry, root Key, b *Binding) (*Plan, error) {
	r := &resolver{
		reg:       reg,
		visiting:  make(map[*Binding]int),
		completed: make(map[*Binding]int),
	}
	if _, err := r.visit(b); err != nil {
		return nil, err
	}
	return &Plan{Root: root, Steps: r.steps}, nil
}

// resolver performs one depth-first plan build. It is not reused.
type resolver struct {
	reg       *Registry
	steps     []Step
	stack     []Key
	visiting  map[*Binding]int // binding → position on stack
	completed map[*Binding]int // binding → step index
}

func (r *resolver) visit(b *Binding) (int, error) {
	if i, ok := r.completed[b]; ok {
		return i, nil
	}
	if pos, ok := r.visiting[b]; ok {
		path := append(append([]Key(nil), r.stack[pos:]...), b.Key)
		return -1, &CircularDependencyError{Path: path}
	}

	r.visiting[b] = len(r.stack)
	r.stack = append(r.stack, b.Key)

	args := make([]StepArg, 0, len(b.Provider.params))
	for _, p := range b.Provider.params {
		arg, err := r.expand(p)
		if err != nil {
			return -1, err
		}
		args = append(args, arg)
	}

	r.stack = r.stack[:len(r.stack)-1]
	delete(r.visiting, b)

	r.steps = append(r.steps, Step{Key: b.Key, Binding: b, Args: args})
	i := len(r.steps) - 1
	r.completed[b] = i
	return i, nil
}

func (r *resolver) expand(p Param) (StepArg, error) {
	if p.All {
		deps := r.reg.LookupAll(p.Key.Type)
		idx := make([]int, 0, len(deps))
		for _, dep := range deps {
			i, err := r.visit(dep)
			if err != nil {
				return StepArg{}, err
			}
			idx = append(idx, i)
		}
		return StepArg{Param: p, Steps: idx}, nil
	}

	dep, err := selectBinding(r.reg, p.Key, r.chain(p.Key))
	if err != nil {
		return StepArg{}, err
	}
	i, err := r.visit(dep)
	if err != nil {
		return StepArg{}, err
	}
	return StepArg{Param: p, Steps: []int{i}}, nil
}

func (r *resolver) chain(k Key) []Key {
	return append(append([]Key(nil), r.stack...), k)
}
