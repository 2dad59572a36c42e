package graph

import (
	"context"
	"fmt"
	"sort"
)

// END marks the terminal of a graph
const END = "END"

// Separator joins a parent thread id and a sub-workflow node name into the
// thread id of the nested run
const Separator = ":"

// NodeKind tags the variant of a node
type NodeKind string

const (
	// KindAgent nodes call a reasoning model and may request tool calls
	KindAgent NodeKind = "agent"
	// KindTool nodes resolve pending tool calls
	KindTool NodeKind = "tool"
	// KindTransform nodes derive or format state without a model
	KindTransform NodeKind = "transform"
	// KindSubgraph nodes delegate to a nested graph
	KindSubgraph NodeKind = "subgraph"
)

// NodeFunc computes a node's delta from the current state. The state passed in
// is a private copy.
type NodeFunc func(ctx context.Context, state State) (Delta, error)

// RouteFunc picks the next node from the state produced by the node it leaves
type RouteFunc func(ctx context.Context, state State) string

// SubgraphMapping converts between a parent state and a nested graph's state
type SubgraphMapping struct {
	// Input builds the nested graph's initial state. Defaults to a copy of the parent state.
	Input func(parent State) State
	// Output turns the nested final state into the parent's delta.
	// Defaults to copying the nested fields.
	Output func(parent State, child State) Delta
}

type node struct {
	name    string
	kind    NodeKind
	fn      NodeFunc
	sub     *Runnable
	mapping SubgraphMapping
}

type conditionalEdge struct {
	route   RouteFunc
	targets map[string]bool
}

// StateGraph is the builder for a workflow graph
type StateGraph struct {
	name        string
	nodes       map[string]*node
	order       []string
	edges       map[string][]string
	conditional map[string][]*conditionalEdge
	entryPoint  string
	errs        []error
}

// NewStateGraph creates an empty graph. The name labels logs, spans and metrics.
func NewStateGraph(name string) *StateGraph {
	return &StateGraph{
		name:        name,
		nodes:       make(map[string]*node),
		edges:       make(map[string][]string),
		conditional: make(map[string][]*conditionalEdge),
	}
}

// Name returns the graph name
func (g *StateGraph) Name() string {
	return g.name
}

func (g *StateGraph) addNode(n *node) *StateGraph {
	switch {
	case n.name == "":
		g.errs = append(g.errs, definitionError(g.name, "", "node name is empty"))
	case n.name == END:
		g.errs = append(g.errs, definitionError(g.name, n.name, "node name %q is reserved", END))
	case g.nodes[n.name] != nil:
		g.errs = append(g.errs, definitionError(g.name, n.name, "node defined twice"))
	default:
		g.nodes[n.name] = n
		g.order = append(g.order, n.name)
	}
	return g
}

// AddNode adds a transform node
func (g *StateGraph) AddNode(name string, fn NodeFunc) *StateGraph {
	return g.addNode(&node{name: name, kind: KindTransform, fn: fn})
}

// AddTransformNode is AddNode
func (g *StateGraph) AddTransformNode(name string, fn NodeFunc) *StateGraph {
	return g.AddNode(name, fn)
}

// AddAgentNode adds a node that calls a reasoning model
func (g *StateGraph) AddAgentNode(name string, fn NodeFunc) *StateGraph {
	return g.addNode(&node{name: name, kind: KindAgent, fn: fn})
}

// AddToolNode adds a node that resolves the pending tool calls of the last agent entry
func (g *StateGraph) AddToolNode(name string, fn NodeFunc) *StateGraph {
	return g.addNode(&node{name: name, kind: KindTool, fn: fn})
}

// AddSubgraph adds a node that runs a compiled graph under the thread id
// parent + Separator + name. The nested graph checkpoints into its own store,
// so State and History on the parent only see sub-thread ids when both share one.
func (g *StateGraph) AddSubgraph(name string, sub *Runnable, mapping SubgraphMapping) *StateGraph {
	if sub == nil {
		g.errs = append(g.errs, definitionError(g.name, name, "nested graph is nil"))
		return g
	}
	if mapping.Input == nil {
		mapping.Input = func(parent State) State { return parent.Clone() }
	}
	if mapping.Output == nil {
		mapping.Output = func(_ State, child State) Delta { return Delta{Fields: copyMap(child.Fields)} }
	}
	return g.addNode(&node{name: name, kind: KindSubgraph, sub: sub, mapping: mapping})
}

// AddEdge adds a static edge
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge routes from a node with fn, which must return one of targets
func (g *StateGraph) AddConditionalEdge(from string, fn RouteFunc, targets ...string) *StateGraph {
	ce := &conditionalEdge{route: fn, targets: make(map[string]bool, len(targets))}
	for _, t := range targets {
		ce.targets[t] = true
	}
	g.conditional[from] = append(g.conditional[from], ce)
	return g
}

// SetEntryPoint sets the first node of the graph
func (g *StateGraph) SetEntryPoint(name string) *StateGraph {
	g.entryPoint = name
	return g
}

func (g *StateGraph) defined(name string) bool {
	return name == END || g.nodes[name] != nil
}

// validate checks the graph definition and returns the successors of every node
func (g *StateGraph) validate() (map[string][]string, error) {
	if len(g.errs) > 0 {
		return nil, g.errs[0]
	}
	if g.entryPoint == "" {
		return nil, definitionError(g.name, "", "entry point not set")
	}
	if g.nodes[g.entryPoint] == nil {
		return nil, definitionError(g.name, g.entryPoint, "entry point is not a defined node")
	}

	for _, from := range sortedKeys(g.edges) {
		if g.nodes[from] == nil {
			return nil, definitionError(g.name, from, "edge starts at an undefined node")
		}
		for _, to := range g.edges[from] {
			if !g.defined(to) {
				return nil, definitionError(g.name, from, "edge points to undefined node %q", to)
			}
		}
	}
	for _, from := range sortedKeys(g.conditional) {
		if g.nodes[from] == nil {
			return nil, definitionError(g.name, from, "conditional edge starts at an undefined node")
		}
		for _, ce := range g.conditional[from] {
			if ce.route == nil {
				return nil, definitionError(g.name, from, "conditional edge has no routing function")
			}
			if len(ce.targets) == 0 {
				return nil, definitionError(g.name, from, "conditional edge declares no targets")
			}
			for _, t := range sortedSet(ce.targets) {
				if !g.defined(t) {
					return nil, definitionError(g.name, from, "conditional edge target %q is undefined", t)
				}
			}
		}
	}

	successors := make(map[string][]string, len(g.nodes))
	for _, name := range g.order {
		static, cond := g.edges[name], g.conditional[name]
		switch {
		case len(static)+len(cond) == 0:
			return nil, definitionError(g.name, name, "node has no outgoing edge")
		case len(static)+len(cond) > 1:
			return nil, definitionError(g.name, name, "node has more than one outgoing edge")
		case len(static) == 1:
			successors[name] = static
		default:
			successors[name] = sortedSet(cond[0].targets)
		}
	}

	if !reaches(g.entryPoint, END, successors) {
		return nil, definitionError(g.name, "", "%s is unreachable from entry point %q", END, g.entryPoint)
	}
	return successors, nil
}

func reaches(from, to string, successors map[string][]string) bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range successors[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Compile validates the graph and returns an executable Runnable
func (g *StateGraph) Compile(opts ...Option) (*Runnable, error) {
	if _, err := g.validate(); err != nil {
		return nil, err
	}

	r := newRunnable(g.name)
	for name, n := range g.nodes {
		r.nodes[name] = n
	}
	for from, to := range g.edges {
		r.edges[from] = to[0]
	}
	for from, ce := range g.conditional {
		r.conditional[from] = ce[0]
	}
	r.entryPoint = g.entryPoint

	for _, opt := range opts {
		opt(r)
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustCompile is like Compile but panics on error
func (g *StateGraph) MustCompile(opts ...Option) *Runnable {
	r, err := g.Compile(opts...)
	if err != nil {
		panic(fmt.Sprintf("graph %q: %v", g.name, err))
	}
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(m map[string]bool) []string {
	return sortedKeys(m)
}
