package workflow

import (
	"slices"
	"time"

	"github.com/jonwraymond/toolgate/observe"
)

// End is the terminal pseudo-step.
const End = "__end__"

// EdgeKind tags an Edge.
type EdgeKind int

const (
	// EdgeAlways continues unconditionally. The engine's halting rule still
	// applies: no step starts once an error is recorded.
	EdgeAlways EdgeKind = iota
	// EdgeIfNoError continues only while no error is recorded.
	EdgeIfNoError
	// EdgeFanOut starts several successors concurrently.
	EdgeFanOut
	// EdgeJoin waits for every member of a fan-out set.
	EdgeJoin
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeAlways:
		return "always"
	case EdgeIfNoError:
		return "if_no_error"
	case EdgeFanOut:
		return "fan_out"
	case EdgeJoin:
		return "join"
	default:
		return "unknown"
	}
}

// Edge connects steps.
type Edge struct {
	Kind EdgeKind
	From []string
	To   []string
}

// Always connects from to to unconditionally.
func Always(from, to string) Edge {
	return Edge{Kind: EdgeAlways, From: []string{from}, To: []string{to}}
}

// IfNoError connects from to to, guarded by "no error recorded".
func IfNoError(from, to string) Edge {
	return Edge{Kind: EdgeIfNoError, From: []string{from}, To: []string{to}}
}

// FanOut starts every step in to after from, guarded by "no error recorded".
func FanOut(from string, to ...string) Edge {
	return Edge{Kind: EdgeFanOut, From: []string{from}, To: to}
}

// Join starts to once every step in from has completed, guarded by "no
// error recorded". from must equal the target set of a FanOut edge.
func Join(from []string, to string) Edge {
	return Edge{Kind: EdgeJoin, From: from, To: []string{to}}
}

func (e Edge) guard(err error) bool {
	if e.Kind == EdgeAlways {
		return true
	}
	return err == nil
}

type options struct {
	runTimeout time.Duration
	middleware *observe.Middleware
}

// Option configures a Graph.
type Option func(*options)

// WithRunTimeout bounds every run. The default is 30 seconds.
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) { o.runTimeout = d }
}

// WithMiddleware wraps each step in a workflow.step span with metrics and
// logging.
func WithMiddleware(m *observe.Middleware) Option {
	return func(o *options) { o.middleware = m }
}

// incoming is an edge seen from its target.
type incoming struct {
	from []string
	edge Edge
}

// Graph is a validated, immutable step graph. It is safe for concurrent
// runs.
type Graph[S any] struct {
	name  string
	entry string
	order []string
	steps map[string]Step[S]
	edges []Edge
	in    map[string][]incoming
	opts  options
}

// Name returns the workflow name.
func (g *Graph[S]) Name() string { return g.name }

// Entry returns the entry step.
func (g *Graph[S]) Entry() string { return g.entry }

// Steps returns the step names in declaration order.
func (g *Graph[S]) Steps() []string { return slices.Clone(g.order) }

// Edges returns the edges in declaration order.
func (g *Graph[S]) Edges() []Edge { return slices.Clone(g.edges) }

// RunTimeout returns the run deadline.
func (g *Graph[S]) RunTimeout() time.Duration { return g.opts.runTimeout }

// Builder assembles a Graph.
//
// Example:
//
//	g, err := workflow.NewBuilder[trip]("flight_search").
//		Step("resolve", resolve).
//		Step("search", search).
//		Step("enrich", enrich).
//		Step("persist", persist).
//		Entry("resolve").
//		Edges(
//			workflow.FanOut("resolve", "search", "enrich"),
//			workflow.Join([]string{"search", "enrich"}, "persist"),
//			workflow.IfNoError("persist", workflow.End),
//		).
//		Build(workflow.WithRunTimeout(30 * time.Second))
type Builder[S any] struct {
	name  string
	entry string
	order []string
	steps map[string]Step[S]
	edges []Edge
	errs  []error
}

// NewBuilder starts a graph named name.
func NewBuilder[S any](name string) *Builder[S] {
	return &Builder[S]{name: name, steps: make(map[string]Step[S])}
}

// Step adds a named step.
func (b *Builder[S]) Step(name string, fn Step[S]) *Builder[S] {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, invalidGraph("reserved step name %q", name))
	case fn == nil:
		b.errs = append(b.errs, invalidGraph("step %q has no function", name))
	case b.steps[name] != nil:
		b.errs = append(b.errs, invalidGraph("duplicate step %q", name))
	default:
		b.steps[name] = fn
		b.order = append(b.order, name)
	}
	return b
}

// Entry sets the first step.
func (b *Builder[S]) Entry(name string) *Builder[S] {
	b.entry = name
	return b
}

// Edges adds edges.
func (b *Builder[S]) Edges(edges ...Edge) *Builder[S] {
	b.edges = append(b.edges, edges...)
	return b
}

// Build validates the graph: every edge names known steps, the entry is the
// single step without predecessors, the graph is acyclic, every step is
// reachable from the entry and every join set matches a fan-out set.
func (b *Builder[S]) Build(opts ...Option) (*Graph[S], error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	o := options{runTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.middleware == nil {
		o.middleware = observe.NopMiddleware()
	}

	g := &Graph[S]{
		name:  b.name,
		entry: b.entry,
		order: slices.Clone(b.order),
		steps: b.steps,
		edges: slices.Clone(b.edges),
		in:    make(map[string][]incoming),
		opts:  o,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph[S]) validate() error {
	if _, ok := g.steps[g.entry]; !ok {
		return invalidGraph("unknown entry step %q", g.entry)
	}

	out := make(map[string][]string)
	var fanOuts [][]string
	for _, e := range g.edges {
		if len(e.From) == 0 || len(e.To) == 0 {
			return invalidGraph("%s edge without endpoints", e.Kind)
		}
		for _, f := range e.From {
			if _, ok := g.steps[f]; !ok {
				return invalidGraph("%s edge from unknown step %q", e.Kind, f)
			}
		}
		for _, t := range e.To {
			if t == End {
				continue
			}
			if _, ok := g.steps[t]; !ok {
				return invalidGraph("%s edge to unknown step %q", e.Kind, t)
			}
			g.in[t] = append(g.in[t], incoming{from: e.From, edge: e})
			for _, f := range e.From {
				out[f] = append(out[f], t)
			}
		}
		switch e.Kind {
		case EdgeFanOut:
			if len(e.To) < 2 || slices.Contains(e.To, End) {
				return invalidGraph("fan-out from %q needs two or more steps", e.From[0])
			}
			fanOuts = append(fanOuts, sorted(e.To))
		case EdgeJoin:
			if len(e.From) < 2 {
				return invalidGraph("join into %q needs two or more steps", e.To[0])
			}
		default:
			if len(e.From) != 1 || len(e.To) != 1 {
				return invalidGraph("%s edge must connect exactly one pair", e.Kind)
			}
		}
	}

	for _, e := range g.edges {
		if e.Kind != EdgeJoin {
			continue
		}
		set := sorted(e.From)
		if !slices.ContainsFunc(fanOuts, func(f []string) bool { return slices.Equal(f, set) }) {
			return invalidGraph("join %v into %q matches no fan-out set", e.From, e.To[0])
		}
	}

	for _, name := range g.order {
		if name == g.entry {
			if len(g.in[name]) > 0 {
				return invalidGraph("entry step %q has predecessors", name)
			}
			continue
		}
		if len(g.in[name]) == 0 {
			return invalidGraph("step %q has no predecessors", name)
		}
	}

	// Kahn's algorithm over step nodes; End is not a node.
	indeg := make(map[string]int, len(g.order))
	for _, name := range g.order {
		for _, in := range g.in[name] {
			indeg[name] += len(in.from)
		}
	}
	queue := []string{g.entry}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, t := range out[n] {
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
	if visited != len(g.order) {
		return invalidGraph("cycle or unreachable step in %q", g.name)
	}
	return nil
}

func sorted(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}
