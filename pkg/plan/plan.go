// Package plan implements the version planner and applier.
//
// The planner takes a workspace, its dependency graph, the merged
// changesets, and a versioning strategy, and produces a deterministic
// ordered list of per-package version and specifier changes. The
// applier executes a plan entry by entry with atomic manifest writes,
// appends changelog sections, and consumes the changesets that fed the
// plan. Planning is pure: identical inputs always yield an identical
// plan, and applying never mutates the in-memory workspace.
package plan

import (
	"encoding/json"
	"io"

	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// Reason explains why a package entered the plan.
type Reason string

const (
	// ReasonChangeset marks a directly requested bump.
	ReasonChangeset Reason = "changeset"
	// ReasonGroup marks a bump received through a fixed or grouped set.
	ReasonGroup Reason = "group"
	// ReasonPropagation marks a bump received as a dependent of a
	// changed package.
	ReasonPropagation Reason = "propagation"
	// ReasonSpecifier marks an entry whose version does not change but
	// whose manifest needs dependency specifiers rewritten.
	ReasonSpecifier Reason = "specifier"
)

// SpecifierUpdate is one dependency-specifier rewrite inside the
// entry's manifest.
type SpecifierUpdate struct {
	// Target is the planned package the specifier points at.
	Target string
	Kind   workspace.DepKind
	From   string
	To     string
}

// Entry is one package's change in the plan.
type Entry struct {
	Package string
	From    semver.Version
	To      semver.Version
	Bump    semver.Bump
	Reason  Reason

	// Changesets lists the ids of the changesets contributing to this
	// entry, sorted. Empty for propagation-only entries.
	Changesets []string
	// Summaries carries the summaries of those changesets for the
	// changelog, in the same order.
	Summaries []string

	Updates []SpecifierUpdate
}

// Plan is the ordered output of a planning run. Entries are in reverse
// topological order: dependencies before dependents, names breaking
// ties within a rank.
type Plan struct {
	Entries []Entry
	// Notes records non-fatal observations, notably cycle-break edges
	// removed for ordering only.
	Notes []string
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool { return len(p.Entries) == 0 }

// Entry returns the plan entry for a package, if any.
func (p *Plan) Entry(name string) (*Entry, bool) {
	for i := range p.Entries {
		if p.Entries[i].Package == name {
			return &p.Entries[i], true
		}
	}
	return nil, false
}

type updateJSON struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type entryJSON struct {
	Package    string       `json:"package"`
	From       string       `json:"from"`
	To         string       `json:"to"`
	Bump       string       `json:"bump"`
	Reason     string       `json:"reason"`
	Changesets []string     `json:"changesets,omitempty"`
	Dependents []updateJSON `json:"dependents,omitempty"`
}

type planJSON struct {
	Notes   []string    `json:"notes,omitempty"`
	Entries []entryJSON `json:"entries"`
}

// Encode writes the plan as indented JSON with stable key order and a
// trailing newline. This is the dry-run output format.
func (p *Plan) Encode(w io.Writer) error {
	out := planJSON{Notes: p.Notes, Entries: []entryJSON{}}
	for _, e := range p.Entries {
		ej := entryJSON{
			Package:    e.Package,
			From:       e.From.String(),
			To:         e.To.String(),
			Bump:       e.Bump.String(),
			Reason:     string(e.Reason),
			Changesets: e.Changesets,
		}
		for _, u := range e.Updates {
			ej.Dependents = append(ej.Dependents, updateJSON{
				Target: u.Target,
				Kind:   string(u.Kind),
				From:   u.From,
				To:     u.To,
			})
		}
		out.Entries = append(out.Entries, ej)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
