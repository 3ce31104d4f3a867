package depgraph

import "sort"

// ClosureDependents returns every package transitively depending on any
// seed, following only edges whose kind the filter enables. The seeds
// themselves are excluded unless reachable through a cycle. The result
// is sorted by name; BFS over reverse edges makes this cycle-safe.
func (g *Graph) ClosureDependents(seeds []string, kinds KindFilter) []string {
	return g.closure(seeds, kinds, g.dependents)
}

// ClosureDeps returns every package any seed transitively depends on,
// following only edges whose kind the filter enables. Sorted by name.
func (g *Graph) ClosureDeps(seeds []string, kinds KindFilter) []string {
	return g.closure(seeds, kinds, g.dependencies)
}

func (g *Graph) closure(seeds []string, kinds KindFilter, next func(string, KindFilter) []string) []string {
	// Seeds are not pre-marked, so a seed only enters the closure when
	// a cycle leads back to it.
	visited := make(map[string]bool)
	queue := append([]string(nil), seeds...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next(cur, kinds) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}

	out := make([]string, 0, len(visited))
	for name := range visited {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
