package semver

import (
	"strings"
)

// Satisfies reports whether version v lies inside the npm-style range
// expression. Supported syntax covers what workspace manifests actually
// use: "*"/"x"/"" (any), exact versions, caret and tilde shorthands,
// comparator lists separated by spaces (ANDed), and "||" alternatives
// (ORed). Unparseable ranges never match.
//
// Prerelease versions only satisfy ranges whose comparators mention a
// prerelease on the same core version, following the npm rule.
func Satisfies(v Version, rng string) bool {
	r, err := ParseRange(rng)
	if err != nil {
		return false
	}
	return r.Match(v)
}

// Range is a parsed range expression: alternatives of ANDed comparators.
type Range struct {
	alternatives [][]comparator
	raw          string
}

// comparator is a single constraint against a version.
type comparator struct {
	op      string // "", "=", "<", "<=", ">", ">=", "^", "~", "*"
	version Version
}

// String returns the original range expression.
func (r Range) String() string { return r.raw }

// ParseRange parses an npm-style range expression.
// Returns a *ParseError when any comparator is malformed.
func ParseRange(s string) (Range, error) {
	raw := strings.TrimSpace(s)
	r := Range{raw: s}

	if raw == "" || raw == "*" || raw == "x" || raw == "X" {
		r.alternatives = [][]comparator{{{op: "*"}}}
		return r, nil
	}

	for _, alt := range strings.Split(raw, "||") {
		fields := strings.Fields(alt)
		if len(fields) == 0 {
			return Range{}, &ParseError{Input: s, Message: "empty range alternative"}
		}
		var comps []comparator
		for _, f := range fields {
			c, err := parseComparator(f)
			if err != nil {
				return Range{}, err
			}
			comps = append(comps, c)
		}
		r.alternatives = append(r.alternatives, comps)
	}
	return r, nil
}

func parseComparator(s string) (comparator, error) {
	if s == "*" || s == "x" || s == "X" {
		return comparator{op: "*"}, nil
	}

	op := ""
	rest := s
	for _, candidate := range []string{">=", "<=", ">", "<", "^", "~", "="} {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			rest = s[len(candidate):]
			break
		}
	}
	if op == "=" {
		op = ""
	}

	v, err := Parse(rest)
	if err != nil {
		return comparator{}, err
	}
	return comparator{op: op, version: v}, nil
}

// Match reports whether v satisfies the range.
func (r Range) Match(v Version) bool {
	for _, comps := range r.alternatives {
		if matchAll(v, comps) {
			return true
		}
	}
	return false
}

func matchAll(v Version, comps []comparator) bool {
	for _, c := range comps {
		if !c.match(v) {
			return false
		}
	}
	if len(v.Pre) == 0 {
		return true
	}
	// Prereleases require an anchor comparator on the same core version.
	for _, c := range comps {
		if c.op == "*" {
			continue
		}
		if len(c.version.Pre) > 0 && c.version.Base().Equal(v.Base()) {
			return true
		}
	}
	return false
}

func (c comparator) match(v Version) bool {
	switch c.op {
	case "*":
		return true
	case "":
		return v.Compare(c.version) == 0
	case "<":
		return v.Compare(c.version) < 0
	case "<=":
		return v.Compare(c.version) <= 0
	case ">":
		return v.Compare(c.version) > 0
	case ">=":
		return v.Compare(c.version) >= 0
	case "^":
		return matchCaret(v, c.version)
	case "~":
		return matchTilde(v, c.version)
	default:
		return false
	}
}

// matchCaret implements npm caret semantics: changes allowed up to the
// leftmost non-zero component. ^1.2.3 admits [1.2.3, 2.0.0); ^0.2.3
// admits [0.2.3, 0.3.0); ^0.0.3 admits only 0.0.3 (plus prereleases of it).
func matchCaret(v, anchor Version) bool {
	if v.Compare(anchor) < 0 {
		return false
	}
	switch {
	case anchor.Major != 0:
		return v.Major == anchor.Major
	case anchor.Minor != 0:
		return v.Major == 0 && v.Minor == anchor.Minor
	default:
		return v.Major == 0 && v.Minor == 0 && v.Patch == anchor.Patch
	}
}

// matchTilde implements npm tilde semantics: patch-level changes only.
// ~1.2.3 admits [1.2.3, 1.3.0).
func matchTilde(v, anchor Version) bool {
	if v.Compare(anchor) < 0 {
		return false
	}
	return v.Major == anchor.Major && v.Minor == anchor.Minor
}
