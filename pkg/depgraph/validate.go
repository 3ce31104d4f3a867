package depgraph

import (
	"sort"

	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// MissingDependency is a workspace-protocol edge whose target is not a
// workspace package: the declared intent cannot be satisfied locally.
type MissingDependency struct {
	From      string
	To        string
	Specifier string
}

// ValidationReport captures structural issues in the workspace.
// Validation is reported, never thrown; callers decide whether a
// finding is fatal for their use case.
type ValidationReport struct {
	CycleDetected bool
	Cycles        [][]string

	// MissingDependencies lists workspace-protocol edges that resolve
	// to nothing inside the workspace.
	MissingDependencies []MissingDependency

	// VersionConflicts maps a package name to the distinct range
	// specifiers demanded of it when those ranges cannot all be met by
	// the package's current version.
	VersionConflicts map[string][]string

	// Unreachable lists packages with no workspace edges in either
	// direction. Informational only.
	Unreachable []string
}

// Clean reports whether the validation found nothing at all, including
// informational findings.
func (r *ValidationReport) Clean() bool {
	return !r.CycleDetected &&
		len(r.MissingDependencies) == 0 &&
		len(r.VersionConflicts) == 0 &&
		len(r.Unreachable) == 0
}

// Validate inspects the workspace for structural issues. Every output
// sequence is sorted by name for deterministic reports.
func Validate(ws *workspace.Workspace) *ValidationReport {
	g := New(ws)
	report := &ValidationReport{
		Cycles:           g.Cycles(),
		VersionConflicts: map[string][]string{},
	}
	report.CycleDetected = len(report.Cycles) > 0

	specifiers := map[string]map[string]bool{} // target -> distinct range specifiers
	for _, from := range g.names {
		for _, d := range ws.DependenciesOf(from) {
			if d.Protocol == workspace.ProtocolWorkspace && !d.IsWorkspaceEdge() {
				report.MissingDependencies = append(report.MissingDependencies, MissingDependency{
					From:      d.From,
					To:        d.Target,
					Specifier: d.Specifier,
				})
			}
			if d.IsWorkspaceEdge() && d.Protocol == workspace.ProtocolVersionRange {
				if specifiers[d.To] == nil {
					specifiers[d.To] = map[string]bool{}
				}
				specifiers[d.To][d.Specifier] = true
			}
		}
	}
	sort.Slice(report.MissingDependencies, func(i, j int) bool {
		a, b := report.MissingDependencies[i], report.MissingDependencies[j]
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	// A conflict needs at least two distinct ranges on the same target
	// and at least one of them unable to admit the current version.
	targets := make([]string, 0, len(specifiers))
	for t := range specifiers {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, target := range targets {
		specs := specifiers[target]
		if len(specs) < 2 {
			continue
		}
		pkg, ok := ws.Get(target)
		if !ok {
			continue
		}
		conflict := false
		sorted := make([]string, 0, len(specs))
		for s := range specs {
			sorted = append(sorted, s)
			if !semver.Satisfies(pkg.Version, s) {
				conflict = true
			}
		}
		if conflict {
			sort.Strings(sorted)
			report.VersionConflicts[target] = sorted
		}
	}

	for _, name := range g.names {
		if len(g.out[name]) == 0 && len(g.in[name]) == 0 {
			report.Unreachable = append(report.Unreachable, name)
		}
	}
	sort.Strings(report.Unreachable)

	return report
}
