package plan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/depgraph"
	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/observability"
	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// Planner builds plans over a workspace. It borrows the workspace and
// graph read-only; a planner is cheap and intended to live for a single
// planning session.
type Planner struct {
	ws       *workspace.Workspace
	g        *depgraph.Graph
	strategy Strategy
}

// NewPlanner validates the strategy and returns a planner for the
// workspace.
func NewPlanner(ws *workspace.Workspace, strategy Strategy) (*Planner, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return &Planner{ws: ws, g: depgraph.New(ws), strategy: strategy}, nil
}

// Graph exposes the planner's dependency graph, mainly for callers
// that want to report validation findings alongside the plan.
func (p *Planner) Graph() *depgraph.Graph { return p.g }

// intent tracks everything known about one package during planning.
type intent struct {
	bump       semver.Bump
	direct     bool // requested by a changeset
	grouped    bool // raised by a fixed/grouped set
	changesets []string
	summaries  []string
	// baseline overrides the package's own version as the bump base,
	// used by fixed sets that align on the max member version.
	baseline *semver.Version
}

// Plan computes the deterministic plan for the merged changesets.
// Planning is pure: it reads the workspace and graph but mutates
// neither, and identical inputs produce identical plans. On any fatal
// error no partial plan is returned.
func (p *Planner) Plan(ctx context.Context, changesets []*changeset.Changeset) (*Plan, error) {
	start := time.Now()
	observability.Engine().OnPlanStart(ctx, len(changesets))

	plan, err := p.plan(ctx, changesets)

	var entries int
	if plan != nil {
		entries = len(plan.Entries)
	}
	observability.Engine().OnPlanComplete(ctx, entries, time.Since(start), err)
	return plan, err
}

func (p *Planner) plan(ctx context.Context, changesets []*changeset.Changeset) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCancelled, err, "planning cancelled")
	}

	intents, err := p.collectIntents(changesets)
	if err != nil {
		return nil, err
	}
	if err := p.applyGroups(intents); err != nil {
		return nil, err
	}
	p.propagate(intents)

	entries := make(map[string]*Entry, len(intents))
	for name, in := range intents {
		if in.bump == semver.BumpNone {
			continue
		}
		pkg, _ := p.ws.Get(name)
		from := pkg.Version
		base := from
		if in.baseline != nil {
			base = *in.baseline
		}

		e := &Entry{
			Package:    name,
			From:       from,
			To:         p.newVersion(base, in.bump),
			Bump:       in.bump,
			Reason:     reasonOf(in),
			Changesets: in.changesets,
			Summaries:  in.summaries,
		}
		entries[name] = e
	}

	if err := p.rewriteSpecifiers(entries); err != nil {
		return nil, err
	}
	if err := p.validate(entries); err != nil {
		return nil, err
	}

	order, breaks := p.g.OrderingWithBreaks()
	out := &Plan{}
	for _, edge := range breaks {
		out.Notes = append(out.Notes,
			fmt.Sprintf("cycle: edge %s -> %s ignored for ordering only", edge.From, edge.To))
	}
	// Reverse topological order: dependencies first.
	for i := len(order) - 1; i >= 0; i-- {
		if e, ok := entries[order[i]]; ok {
			out.Entries = append(out.Entries, *e)
		}
	}
	return out, nil
}

// collectIntents folds changesets into per-package intents, resolving
// conflicting bumps to the maximum.
func (p *Planner) collectIntents(changesets []*changeset.Changeset) (map[string]*intent, error) {
	sorted := append([]*changeset.Changeset(nil), changesets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	intents := map[string]*intent{}
	for _, cs := range sorted {
		for _, pb := range cs.Packages {
			if pb.Bump == semver.BumpNone {
				continue
			}
			if _, ok := p.ws.Get(pb.Name); !ok {
				return nil, errors.New(errors.ErrCodeMissingTarget,
					"changeset %s names package %s, which is not in the workspace", cs.ID, pb.Name)
			}
			in := intents[pb.Name]
			if in == nil {
				in = &intent{}
				intents[pb.Name] = in
			}
			in.bump = semver.MaxBump(in.bump, pb.Bump)
			in.direct = true
			in.changesets = append(in.changesets, cs.ID)
			in.summaries = append(in.summaries, cs.Summary)
		}
	}
	return intents, nil
}

// applyGroups normalizes intents under fixed and grouped modes: every
// member of a touched set receives the set's max bump, and the bump
// base is aligned on the max current version among members.
func (p *Planner) applyGroups(intents map[string]*intent) error {
	groupNames, sets := p.strategy.groups()
	for _, groupName := range groupNames {
		members := append([]string(nil), sets[groupName]...)
		sort.Strings(members)

		groupBump := semver.BumpNone
		var baseline semver.Version
		var ids, summaries []string
		for _, m := range members {
			pkg, ok := p.ws.Get(m)
			if !ok {
				return errors.New(errors.ErrCodeMissingTarget,
					"group %s names package %s, which is not in the workspace", groupName, m)
			}
			if baseline.Compare(pkg.Version) < 0 {
				baseline = pkg.Version
			}
			if in, ok := intents[m]; ok {
				groupBump = semver.MaxBump(groupBump, in.bump)
				ids = append(ids, in.changesets...)
				summaries = append(summaries, in.summaries...)
			}
		}
		if groupBump == semver.BumpNone {
			continue
		}
		// A changeset touching several members contributes once.
		ids, summaries = dedupByID(ids, summaries)

		b := baseline
		for _, m := range members {
			in := intents[m]
			if in == nil {
				in = &intent{changesets: ids, summaries: summaries}
				intents[m] = in
			}
			in.bump = semver.MaxBump(in.bump, groupBump)
			in.grouped = true
			in.baseline = &b
		}
	}
	return nil
}

// propagate walks reverse edges from every intended package and assigns
// propagation bumps to dependents. The walk is a worklist that re-visits
// a package whenever its bump increases, which makes it cycle-safe and
// order-independent.
func (p *Planner) propagate(intents map[string]*intent) {
	if p.strategy.Propagate == PropagationOff {
		return
	}
	kinds := p.strategy.kinds()

	queue := make([]string, 0, len(intents))
	for name := range intents {
		queue = append(queue, name)
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		cause := intents[cur].bump

		for _, edge := range p.g.DependentEdges(cur, kinds) {
			dep := edge.From
			candidate := p.strategy.propagationBump(edge.Kind, cause)
			if candidate == semver.BumpNone {
				continue
			}
			in := intents[dep]
			if in == nil {
				in = &intent{}
				intents[dep] = in
			}
			if merged := semver.MaxBump(in.bump, candidate); merged != in.bump {
				in.bump = merged
				queue = append(queue, dep)
			}
		}
	}
}

// newVersion applies the bump with the strategy's channel transforms.
func (p *Planner) newVersion(base semver.Version, bump semver.Bump) semver.Version {
	if p.strategy.SnapshotSuffix != "" {
		return base.NextSnapshot(p.strategy.SnapshotSuffix)
	}
	if ch := p.strategy.PrereleaseChannel; ch != "" {
		// Already on the channel: advance the counter. Otherwise take
		// the regular bump and open a fresh prerelease on the channel.
		if len(base.Pre) > 0 && base.Pre[0] == ch {
			return base.Bumped(semver.BumpPrerelease, "")
		}
		next := base.Bumped(bump, "")
		next.Pre = []string{ch, "0"}
		return next
	}
	return base.Bumped(bump, p.strategy.SnapshotSuffix)
}

// rewriteSpecifiers computes specifier updates for every edge pointing
// at a planned package, creating specifier-only entries for dependents
// that are otherwise unplanned.
func (p *Planner) rewriteSpecifiers(entries map[string]*Entry) error {
	targets := make([]string, 0, len(entries))
	for name := range entries {
		targets = append(targets, name)
	}
	sort.Strings(targets)

	for _, target := range targets {
		to := entries[target].To
		for _, edge := range p.g.EdgesInto(target) {
			updated, changed, err := rewriteSpecifier(edge, to)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			dep := entries[edge.From]
			if dep == nil {
				pkg, _ := p.ws.Get(edge.From)
				dep = &Entry{
					Package: edge.From,
					From:    pkg.Version,
					To:      pkg.Version,
					Bump:    semver.BumpNone,
					Reason:  ReasonSpecifier,
				}
				entries[edge.From] = dep
			}
			dep.Updates = append(dep.Updates, SpecifierUpdate{
				Target: edge.To,
				Kind:   edge.Kind,
				From:   edge.Specifier,
				To:     updated,
			})
		}
	}

	for _, e := range entries {
		sort.Slice(e.Updates, func(i, j int) bool {
			a, b := e.Updates[i], e.Updates[j]
			if a.Target != b.Target {
				return a.Target < b.Target
			}
			return a.Kind < b.Kind
		})
	}
	return nil
}

// validate enforces the plan invariants before emission.
func (p *Planner) validate(entries map[string]*Entry) error {
	for _, e := range entries {
		if !p.strategy.AllowDowngrades && p.strategy.SnapshotSuffix == "" {
			if e.To.Compare(e.From) < 0 {
				return errors.New(errors.ErrCodeDowngradeRefused,
					"planned version %s is lower than current %s", e.To, e.From).WithSubject(e.Package)
			}
		}
		for _, u := range e.Updates {
			if _, ok := entries[u.Target]; !ok {
				return errors.New(errors.ErrCodeMissingTarget,
					"specifier update in %s refers to %s, which is not in the plan", e.Package, u.Target)
			}
		}
	}
	return nil
}

func dedupByID(ids, summaries []string) ([]string, []string) {
	seen := map[string]bool{}
	outIDs := ids[:0:0]
	outSummaries := summaries[:0:0]
	for i, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		outIDs = append(outIDs, id)
		outSummaries = append(outSummaries, summaries[i])
	}
	return outIDs, outSummaries
}

func reasonOf(in *intent) Reason {
	switch {
	case in.direct:
		return ReasonChangeset
	case in.grouped:
		return ReasonGroup
	default:
		return ReasonPropagation
	}
}
