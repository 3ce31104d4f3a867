package depgraph

import "sort"

// Cycles returns the strongly connected components that contain a
// cycle: every SCC of size greater than one, plus single vertices with
// a self-loop. Components are detected with Tarjan's algorithm; each
// component is sorted by name and the list is sorted by first member.
func (g *Graph) Cycles() [][]string {
	return g.cyclesIgnoring(nil)
}

// cyclesIgnoring is Cycles with an edge-ignore set, used by the
// ordering pass to re-detect remaining cycles after breaks.
func (g *Graph) cyclesIgnoring(ignored map[Edge]bool) [][]string {
	t := &tarjan{
		g:       g,
		ignored: ignored,
		index:   make(map[string]int, len(g.names)),
		lowlink: make(map[string]int, len(g.names)),
		onStack: make(map[string]bool, len(g.names)),
	}
	for _, name := range g.names {
		if _, seen := t.index[name]; !seen {
			t.strongconnect(name)
		}
	}

	var cycles [][]string
	for _, scc := range t.components {
		if len(scc) > 1 || g.hasSelfLoop(scc[0], ignored) {
			sort.Strings(scc)
			cycles = append(cycles, scc)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func (g *Graph) hasSelfLoop(name string, ignored map[Edge]bool) bool {
	for _, d := range g.out[name] {
		if d.To == name && !ignored[Edge{From: name, To: name}] {
			return true
		}
	}
	return false
}

// tarjan carries the mutable state of Tarjan's SCC algorithm.
type tarjan struct {
	g          *Graph
	ignored    map[Edge]bool
	counter    int
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	components [][]string
}

func (t *tarjan) strongconnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, d := range t.g.out[v] {
		if t.ignored[Edge{From: d.From, To: d.To}] {
			continue
		}
		w := d.To
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, scc)
	}
}
