package plan

import (
	"strings"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// rewriteSpecifier computes the range-preserving update of a dependency
// specifier when its target moves to a new version. It returns the new
// specifier and whether it differs from the old one.
//
// Simple ranges keep their operator: ^1.0.0 becomes ^1.0.1, ~ and exact
// likewise. The version-less workspace forms (workspace:*, workspace:^,
// workspace:~) carry no version and pass through, as do the file, link,
// portal, and git protocols. Complex ranges are left alone when they
// already admit the new version and refused otherwise, since advancing
// them would change their shape.
func rewriteSpecifier(d workspace.Dependency, to semver.Version) (string, bool, error) {
	switch d.Protocol {
	case workspace.ProtocolWorkspace:
		inner := strings.TrimPrefix(d.Specifier, "workspace:")
		switch inner {
		case "*", "^", "~":
			return d.Specifier, false, nil
		}
		updated, changed, err := rewriteRange(inner, to)
		if err != nil {
			return "", false, err.WithSubject(d.From + " -> " + d.Target)
		}
		return "workspace:" + updated, changed, nil

	case workspace.ProtocolVersionRange:
		updated, changed, err := rewriteRange(d.Specifier, to)
		if err != nil {
			return "", false, err.WithSubject(d.From + " -> " + d.Target)
		}
		return updated, changed, nil

	default:
		// file, link, portal, git: nothing version-shaped to advance.
		return d.Specifier, false, nil
	}
}

// rewriteRange advances a bare version range. Only the ^, ~, = and
// exact single-version shapes are advanced in place.
func rewriteRange(spec string, to semver.Version) (string, bool, *errors.Error) {
	trimmed := strings.TrimSpace(spec)

	op := ""
	rest := trimmed
	for _, candidate := range []string{"^", "~", "="} {
		if after, ok := strings.CutPrefix(trimmed, candidate); ok {
			op, rest = candidate, after
			break
		}
	}

	if _, err := semver.Parse(rest); err == nil {
		updated := op + to.String()
		return updated, updated != spec, nil
	}

	// Not a single-version shape. Leave wildcard and compound ranges
	// untouched when they still admit the new version.
	if semver.Satisfies(to, trimmed) {
		return spec, false, nil
	}
	return "", false, errors.New(errors.ErrCodeRangeRefused,
		"cannot advance range %q to cover %s", spec, to)
}
