package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// Upgrade reports one external dependency lagging behind its registry.
type Upgrade struct {
	Package    string              // workspace package declaring the dependency
	Dependency string              // external dependency name
	Kind       workspace.DepKind   // manifest section it came from
	Specifier  string              // declared range
	Latest     semver.Version      // latest published version
	InRange    bool                // latest still satisfies the declared range
	Relation   semver.Relationship // anchor version vs latest
}

// Detector finds outdated external dependencies across a workspace.
// It is a reporting satellite: its findings never feed the planner.
type Detector struct {
	ws     *workspace.Workspace
	client *Client
}

// NewDetector builds a detector over the workspace using the client.
func NewDetector(ws *workspace.Workspace, client *Client) *Detector {
	return &Detector{ws: ws, client: client}
}

// Detect fetches latest versions for every external version-range
// dependency and reports the ones whose declared anchor lags behind.
// Results are sorted by package, then dependency name.
func (d *Detector) Detect(ctx context.Context) ([]Upgrade, error) {
	edges := d.externalEdges()
	names := make([]string, 0, len(edges))
	seen := map[string]bool{}
	for _, e := range edges {
		if !seen[e.Target] {
			seen[e.Target] = true
			names = append(names, e.Target)
		}
	}
	sort.Strings(names)

	latest, err := d.client.LatestVersions(ctx, names)
	if err != nil {
		return nil, err
	}

	var out []Upgrade
	for _, e := range edges {
		lv, ok := latest[e.Target]
		if !ok {
			continue
		}
		anchor, ok := anchorOf(e.Specifier)
		if ok && anchor.Compare(lv) >= 0 {
			continue
		}
		u := Upgrade{
			Package:    e.From,
			Dependency: e.Target,
			Kind:       e.Kind,
			Specifier:  e.Specifier,
			Latest:     lv,
			InRange:    semver.Satisfies(lv, e.Specifier),
		}
		if ok {
			u.Relation = anchor.Relationship(lv)
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Dependency < b.Dependency
	})
	return out, nil
}

func (d *Detector) externalEdges() []workspace.Dependency {
	var edges []workspace.Dependency
	for _, pkg := range d.ws.Packages() {
		for _, dep := range pkg.Dependencies {
			if dep.IsWorkspaceEdge() || dep.Protocol != workspace.ProtocolVersionRange {
				continue
			}
			edges = append(edges, dep)
		}
	}
	return edges
}

// anchorOf extracts the version a simple range is anchored at.
// Compound or wildcard ranges have no single anchor.
func anchorOf(spec string) (semver.Version, bool) {
	s := strings.TrimSpace(spec)
	for _, op := range []string{">=", "<=", "^", "~", "=", ">", "<"} {
		if rest, ok := strings.CutPrefix(s, op); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}
	if strings.ContainsAny(s, " |") {
		return semver.Version{}, false
	}
	v, err := semver.Parse(s)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}
