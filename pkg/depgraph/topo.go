package depgraph

import (
	"container/heap"
	"sort"
)

// TopoOrder returns the vertices in topological order using Kahn's
// algorithm: every package appears before all of its dependencies, and
// ties are broken lexicographically for determinism.
//
// Cyclic graphs still produce a defined, stable order: each strongly
// connected component is linearized for ordering after dropping its
// lexicographically largest internal edge (see [Graph.OrderingWithBreaks]).
func (g *Graph) TopoOrder() []string {
	order, _ := g.OrderingWithBreaks()
	return order
}

// OrderingWithBreaks is TopoOrder plus the list of edges that were
// ignored to linearize cycles. The breaks are ordering-only: the graph
// itself is never modified. For each SCC with a cycle the
// lexicographically largest edge (by from, then to) inside the
// component is dropped; the process repeats until the component
// linearizes.
func (g *Graph) OrderingWithBreaks() ([]string, []Edge) {
	ignored := map[Edge]bool{}
	var breaks []Edge

	for {
		order, ok := g.kahn(ignored)
		if ok {
			return order, breaks
		}
		// Still cyclic: drop the largest edge of each remaining cycle.
		progressed := false
		for _, scc := range g.cyclesIgnoring(ignored) {
			e, found := g.largestEdgeIn(scc, ignored)
			if found {
				ignored[e] = true
				breaks = append(breaks, e)
				progressed = true
			}
		}
		if !progressed {
			// Defensive: cannot happen, every cycle has an edge.
			order, _ := g.kahn(ignored)
			return order, breaks
		}
	}
}

// kahn runs Kahn's algorithm ignoring the given edges. The boolean is
// false when cycles prevented a complete ordering; the partial order is
// still returned with the cyclic remainder appended sorted by name.
func (g *Graph) kahn(ignored map[Edge]bool) ([]string, bool) {
	indegree := make(map[string]int, len(g.names))
	for _, name := range g.names {
		indegree[name] = 0
	}
	for _, e := range g.Edges() {
		if !ignored[e] {
			indegree[e.To]++
		}
	}

	// Lexicographic min-heap of ready vertices keeps ties deterministic.
	ready := &stringHeap{}
	heap.Init(ready)
	for _, name := range g.names {
		if indegree[name] == 0 {
			heap.Push(ready, name)
		}
	}

	order := make([]string, 0, len(g.names))
	for ready.Len() > 0 {
		name := heap.Pop(ready).(string)
		order = append(order, name)
		for _, d := range g.out[name] {
			e := Edge{From: d.From, To: d.To}
			if ignored[e] {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				heap.Push(ready, e.To)
			}
		}
	}

	if len(order) == len(g.names) {
		return order, true
	}

	emitted := make(map[string]bool, len(order))
	for _, name := range order {
		emitted[name] = true
	}
	var rest []string
	for _, name := range g.names {
		if !emitted[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...), false
}

// largestEdgeIn returns the lexicographically largest non-ignored edge
// with both endpoints inside the component.
func (g *Graph) largestEdgeIn(scc []string, ignored map[Edge]bool) (Edge, bool) {
	members := make(map[string]bool, len(scc))
	for _, name := range scc {
		members[name] = true
	}

	var best Edge
	found := false
	for _, e := range g.Edges() {
		if ignored[e] || !members[e.From] || !members[e.To] {
			continue
		}
		if !found || e.From > best.From || (e.From == best.From && e.To > best.To) {
			best = e
			found = true
		}
	}
	return best, found
}

// stringHeap is a min-heap of strings.
type stringHeap []string

func (h stringHeap) Len() int            { return len(h) }
func (h stringHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h stringHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stringHeap) Push(x any)         { *h = append(*h, x.(string)) }
func (h *stringHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
