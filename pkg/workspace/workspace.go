package workspace

import (
	"sort"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/pm"
)

// Workspace is the immutable package model for a single planning run.
// Construction resolves every dependency edge against the set of
// discovered packages; edges to unknown targets keep the external
// sentinel and are excluded from propagation.
type Workspace struct {
	Root    string
	Manager pm.Kind

	packages   map[string]*Package
	names      []string            // sorted package names
	dependents map[string][]string // reverse edges, sorted
}

// build assembles a Workspace from parsed packages, enforcing unique
// names and resolving edges.
func build(root string, manager pm.Kind, pkgs []*Package) (*Workspace, error) {
	ws := &Workspace{
		Root:       root,
		Manager:    manager,
		packages:   make(map[string]*Package, len(pkgs)),
		dependents: make(map[string][]string),
	}

	for _, p := range pkgs {
		if existing, ok := ws.packages[p.Name]; ok {
			return nil, errors.New(errors.ErrCodeDuplicate,
				"package %q defined at both %s and %s", p.Name, existing.ManifestPath, p.ManifestPath)
		}
		ws.packages[p.Name] = p
		ws.names = append(ws.names, p.Name)
	}
	sort.Strings(ws.names)

	for _, name := range ws.names {
		p := ws.packages[name]
		for i := range p.Dependencies {
			d := &p.Dependencies[i]
			if _, ok := ws.packages[d.Target]; ok {
				d.To = d.Target
			} else {
				d.To = ExternalSentinel
			}
		}
		sort.Slice(p.Dependencies, func(i, j int) bool {
			a, b := p.Dependencies[i], p.Dependencies[j]
			if a.Target != b.Target {
				return a.Target < b.Target
			}
			return a.Kind < b.Kind
		})
		for _, d := range p.Dependencies {
			if d.IsWorkspaceEdge() {
				ws.dependents[d.To] = append(ws.dependents[d.To], name)
			}
		}
	}
	for to := range ws.dependents {
		sort.Strings(ws.dependents[to])
		ws.dependents[to] = dedupe(ws.dependents[to])
	}

	return ws, nil
}

// New assembles a workspace directly from packages, bypassing
// filesystem discovery. Intended for tests and embedders that already
// hold parsed packages.
func New(root string, manager pm.Kind, pkgs []*Package) (*Workspace, error) {
	return build(root, manager, pkgs)
}

// Names returns the sorted package names.
func (w *Workspace) Names() []string {
	return append([]string(nil), w.names...)
}

// Packages returns all packages sorted by name.
func (w *Workspace) Packages() []*Package {
	out := make([]*Package, 0, len(w.names))
	for _, name := range w.names {
		out = append(out, w.packages[name])
	}
	return out
}

// Get returns the named package, or nil and false when unknown.
func (w *Workspace) Get(name string) (*Package, bool) {
	p, ok := w.packages[name]
	return p, ok
}

// Len returns the number of packages.
func (w *Workspace) Len() int { return len(w.names) }

// DependenciesOf returns the dependency edges declared by the named
// package, sorted by target. Returns nil for unknown packages.
func (w *Workspace) DependenciesOf(name string) []Dependency {
	p, ok := w.packages[name]
	if !ok {
		return nil
	}
	return append([]Dependency(nil), p.Dependencies...)
}

// DependentsOf returns the names of workspace packages that depend on
// the named package, sorted. Returns nil when nothing depends on it.
func (w *Workspace) DependentsOf(name string) []string {
	return append([]string(nil), w.dependents[name]...)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
