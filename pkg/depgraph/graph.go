// Package depgraph implements the graph engine over a workspace: Kahn
// topological ordering, Tarjan strongly-connected-component detection,
// kind-filtered transitive closures, and the structural validation
// report.
//
// The graph borrows the workspace read-only and never mutates it. It
// may contain cycles; no operation refuses a cyclic graph, they flag
// it instead. Every output sequence is sorted by name so identical
// inputs always produce identical outputs.
package depgraph

import (
	"github.com/matzehuels/cascade/pkg/workspace"
)

// Edge is a lightweight directed edge between workspace packages.
type Edge struct {
	From string
	To   string
}

// KindFilter selects which dependency kinds an operation follows.
// A nil filter follows runtime edges only.
type KindFilter map[workspace.DepKind]bool

// DefaultKinds follows runtime and optional edges, the default
// propagation policy. Dev edges join via the strategy's include_dev
// flag and peer edges stay out unless explicitly enabled.
func DefaultKinds() KindFilter {
	return KindFilter{workspace.DepRuntime: true, workspace.DepOptional: true}
}

// WithDev returns a copy of the filter with dev edges enabled.
func (f KindFilter) WithDev() KindFilter {
	out := KindFilter{}
	for k, v := range f {
		out[k] = v
	}
	out[workspace.DepDev] = true
	return out
}

func (f KindFilter) allows(kind workspace.DepKind) bool {
	if f == nil {
		return kind == workspace.DepRuntime
	}
	return f[kind]
}

// Graph is the dependency graph of a workspace. Edges run from the
// dependent package to its dependency, so sources are packages nobody
// depends on and sinks are leaf libraries.
type Graph struct {
	names []string // sorted vertex names

	// Adjacency over workspace edges only; external edges are kept in
	// the workspace for upgrade detection but never enter the graph.
	out map[string][]workspace.Dependency // from -> edges
	in  map[string][]workspace.Dependency // to -> edges
}

// New builds the graph for a workspace.
func New(ws *workspace.Workspace) *Graph {
	g := &Graph{
		names: ws.Names(),
		out:   make(map[string][]workspace.Dependency),
		in:    make(map[string][]workspace.Dependency),
	}
	for _, name := range g.names {
		for _, d := range ws.DependenciesOf(name) {
			if !d.IsWorkspaceEdge() {
				continue
			}
			g.out[d.From] = append(g.out[d.From], d)
			g.in[d.To] = append(g.in[d.To], d)
		}
	}
	return g
}

// Names returns the sorted vertex names.
func (g *Graph) Names() []string { return append([]string(nil), g.names...) }

// Edges returns every workspace edge, ordered by (from, to).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, from := range g.names {
		for _, d := range g.out[from] {
			out = append(out, Edge{From: d.From, To: d.To})
		}
	}
	return out
}

// EdgesInto returns every workspace edge pointing at name, regardless
// of kind. The planner uses this to find specifiers to rewrite.
func (g *Graph) EdgesInto(name string) []workspace.Dependency {
	return append([]workspace.Dependency(nil), g.in[name]...)
}

// DependentEdges returns the incoming edges of name whose kind the
// filter enables: the declarations dependents hold on it.
func (g *Graph) DependentEdges(name string, kinds KindFilter) []workspace.Dependency {
	var out []workspace.Dependency
	for _, d := range g.in[name] {
		if kinds.allows(d.Kind) {
			out = append(out, d)
		}
	}
	return out
}

// dependencies returns the filtered outgoing edge targets of name.
func (g *Graph) dependencies(name string, kinds KindFilter) []string {
	var out []string
	for _, d := range g.out[name] {
		if kinds.allows(d.Kind) {
			out = append(out, d.To)
		}
	}
	return out
}

// dependents returns the filtered incoming edge origins of name.
func (g *Graph) dependents(name string, kinds KindFilter) []string {
	var out []string
	for _, d := range g.in[name] {
		if kinds.allows(d.Kind) {
			out = append(out, d.From)
		}
	}
	return out
}
