package plan

import (
	"sort"

	"github.com/matzehuels/cascade/pkg/depgraph"
	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// Mode selects how intended bumps spread within named package sets.
type Mode string

const (
	// ModeIndependent bumps each package per its own records.
	ModeIndependent Mode = "independent"
	// ModeFixed advances every package in the fixed set together to the
	// max bump among them, aligned on the max current version.
	ModeFixed Mode = "fixed"
	// ModeGrouped is fixed within each named group and independent
	// between groups.
	ModeGrouped Mode = "grouped"
)

// Propagation selects the bump assigned to transitive dependents of a
// directly bumped package.
type Propagation string

const (
	// PropagationOff plans no dependent bumps; only specifier rewrites
	// reach dependents.
	PropagationOff Propagation = "off"
	// PropagationPatch gives every affected dependent a patch bump.
	PropagationPatch Propagation = "patch"
	// PropagationSameAsCause mirrors the bump of the package that
	// caused the propagation; with several causes the max wins.
	PropagationSameAsCause Propagation = "same-as-cause"
	// PropagationPerKind picks the bump from the per_kind table by the
	// kind of the edge the propagation traveled.
	PropagationPerKind Propagation = "per-kind"
)

// Strategy is the versioning strategy, decodable straight from the
// [strategy] table of cascade.toml. The zero value is not usable; start
// from DefaultStrategy.
type Strategy struct {
	Mode Mode `toml:"mode"`

	// Packages is the fixed set for ModeFixed.
	Packages []string `toml:"packages"`
	// Groups are the named sets for ModeGrouped.
	Groups map[string][]string `toml:"groups"`

	Propagate Propagation `toml:"propagate_dependents"`
	// PerKind maps a dependency kind name to a bump name, consulted
	// only under PropagationPerKind.
	PerKind map[string]string `toml:"per_kind"`

	IncludeDev bool `toml:"include_dev"`
	// IncludePeer opts peer edges into propagation. Off by default.
	IncludePeer bool `toml:"include_peer"`

	// PrereleaseChannel, when set, turns every planned version into a
	// prerelease tagged with this channel.
	PrereleaseChannel string `toml:"prerelease_channel"`
	// SnapshotSuffix, when set, overrides every bump to snapshot form
	// on this suffix. Takes precedence over PrereleaseChannel.
	SnapshotSuffix string `toml:"snapshot_suffix"`

	AllowDowngrades bool `toml:"allow_downgrades"`
}

// DefaultStrategy is independent mode with patch propagation over
// runtime and optional edges.
func DefaultStrategy() Strategy {
	return Strategy{Mode: ModeIndependent, Propagate: PropagationPatch}
}

// Validate checks enum fields and the per-kind table. An empty Mode or
// Propagate is filled with the default rather than rejected, so a
// sparse [strategy] table works.
func (s *Strategy) Validate() error {
	if s.Mode == "" {
		s.Mode = ModeIndependent
	}
	switch s.Mode {
	case ModeIndependent, ModeFixed, ModeGrouped:
	default:
		return errors.New(errors.ErrCodeParse, "unknown strategy mode %q", s.Mode)
	}

	if s.Propagate == "" {
		s.Propagate = PropagationPatch
	}
	switch s.Propagate {
	case PropagationOff, PropagationPatch, PropagationSameAsCause, PropagationPerKind:
	default:
		return errors.New(errors.ErrCodeParse, "unknown propagate_dependents %q", s.Propagate)
	}

	for kind, bump := range s.PerKind {
		switch workspace.DepKind(kind) {
		case workspace.DepRuntime, workspace.DepDev, workspace.DepPeer, workspace.DepOptional:
		default:
			return errors.New(errors.ErrCodeParse, "unknown dependency kind %q in per_kind", kind)
		}
		if _, err := semver.ParseBump(bump); err != nil {
			return errors.Wrap(errors.ErrCodeParse, err, "per_kind bump for %s", kind)
		}
	}
	return nil
}

// kinds returns the edge filter propagation follows.
func (s *Strategy) kinds() depgraph.KindFilter {
	f := depgraph.DefaultKinds()
	if s.IncludeDev {
		f = f.WithDev()
	}
	if s.IncludePeer {
		f[workspace.DepPeer] = true
	}
	return f
}

// propagationBump resolves the bump a dependent receives when reached
// over an edge of the given kind from a cause with the given bump.
func (s *Strategy) propagationBump(kind workspace.DepKind, cause semver.Bump) semver.Bump {
	switch s.Propagate {
	case PropagationSameAsCause:
		return cause
	case PropagationPerKind:
		if name, ok := s.PerKind[string(kind)]; ok {
			b, err := semver.ParseBump(name)
			if err == nil {
				return b
			}
		}
		return semver.BumpPatch
	default:
		return semver.BumpPatch
	}
}

// groups returns the effective named sets of the mode: the single fixed
// set under ModeFixed, the group table under ModeGrouped, nothing
// otherwise. Group names come back sorted for deterministic iteration.
func (s *Strategy) groups() (names []string, sets map[string][]string) {
	switch s.Mode {
	case ModeFixed:
		if len(s.Packages) == 0 {
			return nil, nil
		}
		return []string{"fixed"}, map[string][]string{"fixed": s.Packages}
	case ModeGrouped:
		sets = s.Groups
		for name := range sets {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, sets
	default:
		return nil, nil
	}
}
