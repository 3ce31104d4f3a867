// Package semver implements the version algebra used by the planner.
//
// Versions follow the npm flavor of semantic versioning: a dotted
// major.minor.patch core, an optional dash-prefixed prerelease made of
// dot-separated identifiers, and optional plus-prefixed build metadata
// that is carried but ignored for ordering.
//
// On top of plain semver the package models two release channels:
//
//   - Prerelease: any version with a non-empty prerelease sequence.
//   - Snapshot: the distinguished prerelease form <base>-<suffix>.<n>
//     where n is a monotonic counter (e.g. 1.2.3-canary.4). Snapshots
//     power continuous-delivery channels where every apply advances the
//     counter without touching the base version.
//
// All functions are pure; the package performs no I/O.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Stability classifies a version into a release channel.
type Stability int

const (
	// Stable versions carry no prerelease identifiers.
	Stable Stability = iota
	// Prerelease versions carry prerelease identifiers that do not form
	// a snapshot counter.
	Prerelease
	// Snapshot versions have the form <base>-<suffix>.<n> with numeric n.
	Snapshot
)

// String returns the channel name ("stable", "prerelease", "snapshot").
func (s Stability) String() string {
	switch s {
	case Prerelease:
		return "prerelease"
	case Snapshot:
		return "snapshot"
	default:
		return "stable"
	}
}

// Bump identifies a version-increment category. The order of the
// constants defines severity: Major outranks Minor, which outranks
// Patch, and so on down to None. Use [MaxBump] to resolve conflicting
// intents for the same package.
type Bump int

const (
	// BumpNone leaves the version unchanged.
	BumpNone Bump = iota
	// BumpSnapshot advances (or starts) the snapshot counter.
	BumpSnapshot
	// BumpPrerelease advances (or starts) the prerelease counter.
	BumpPrerelease
	// BumpPatch increments patch and drops any prerelease.
	BumpPatch
	// BumpMinor increments minor, resets patch, drops any prerelease.
	BumpMinor
	// BumpMajor increments major, resets minor and patch, drops any prerelease.
	BumpMajor
)

var bumpNames = map[Bump]string{
	BumpNone:       "none",
	BumpSnapshot:   "snapshot",
	BumpPrerelease: "prerelease",
	BumpPatch:      "patch",
	BumpMinor:      "minor",
	BumpMajor:      "major",
}

// String returns the bump name used in changeset files and plans.
func (b Bump) String() string { return bumpNames[b] }

// ParseBump converts a bump name back into a Bump.
// Returns a *ParseError for unknown names.
func ParseBump(s string) (Bump, error) {
	for b, name := range bumpNames {
		if name == s {
			return b, nil
		}
	}
	return BumpNone, &ParseError{Input: s, Message: "unknown bump kind"}
}

// MaxBump returns the more severe of two bumps.
func MaxBump(a, b Bump) Bump {
	if a > b {
		return a
	}
	return b
}

// Relationship describes how two versions relate.
type Relationship int

const (
	// Same means the versions compare equal.
	Same Relationship = iota
	// Older means a precedes b.
	Older
	// Newer means a succeeds b.
	Newer
	// Incompatible means the versions differ in major version (or pre-1.0
	// minor), so one cannot satisfy a caret range anchored at the other.
	Incompatible
)

// ParseError reports an unparseable version string.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Message)
}

// Version is an immutable semantic version.
// The zero value is 0.0.0 and is valid.
type Version struct {
	Major, Minor, Patch uint64
	Pre                 []string // prerelease identifiers, nil for stable
	Build               string   // build metadata, ignored for ordering
}

// versionRegex matches a full semver string and captures core, prerelease
// and build parts. Identifiers are validated separately.
var versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z-.]+))?(?:\+([0-9A-Za-z-.]+))?$`)

// Parse converts a version string into a Version.
// Leading "v" or "=" prefixes are tolerated, matching npm's parser.
// Returns a *ParseError on malformed input.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "=")
	raw = strings.TrimPrefix(raw, "v")

	m := versionRegex.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, &ParseError{Input: s, Message: "not a semantic version"}
	}

	major, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Version{}, &ParseError{Input: s, Message: "major out of range"}
	}
	minor, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return Version{}, &ParseError{Input: s, Message: "minor out of range"}
	}
	patch, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return Version{}, &ParseError{Input: s, Message: "patch out of range"}
	}

	v := Version{Major: major, Minor: minor, Patch: patch, Build: m[5]}
	if m[4] != "" {
		v.Pre = strings.Split(m[4], ".")
		for _, id := range v.Pre {
			if id == "" {
				return Version{}, &ParseError{Input: s, Message: "empty prerelease identifier"}
			}
			if len(id) > 1 && id[0] == '0' && isNumeric(id) {
				return Version{}, &ParseError{Input: s, Message: "numeric prerelease identifier has leading zero"}
			}
		}
	}
	return v, nil
}

// MustParse is like Parse but panics on error.
// Intended for tests and compile-time constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in canonical form.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.Pre) > 0 {
		b.WriteByte('-')
		b.WriteString(strings.Join(v.Pre, "."))
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Base returns the version with prerelease and build metadata stripped.
func (v Version) Base() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

// IsZero reports whether the version is exactly 0.0.0 with no prerelease.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Patch == 0 && len(v.Pre) == 0
}

// Compare returns -1, 0, or +1 if v is older than, equal to, or newer
// than o. Build metadata is ignored. Prerelease ordering follows the
// semver specification: numeric identifiers compare numerically and
// sort before alphanumeric identifiers; a shorter sequence that is a
// prefix of a longer one sorts first; a version with any prerelease
// sorts before the same core without one.
func (v Version) Compare(o Version) int {
	if c := cmpUint(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmpUint(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := cmpUint(v.Patch, o.Patch); c != 0 {
		return c
	}
	return comparePre(v.Pre, o.Pre)
}

// Equal reports whether the versions compare equal (build ignored).
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func comparePre(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1 // stable sorts after prerelease
	case len(b) == 0:
		return -1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpUint(uint64(len(a)), uint64(len(b)))
}

func compareIdentifier(a, b string) int {
	aNum, bNum := isNumeric(a), isNumeric(b)
	switch {
	case aNum && bNum:
		ai, _ := strconv.ParseUint(a, 10, 64)
		bi, _ := strconv.ParseUint(b, 10, 64)
		return cmpUint(ai, bi)
	case aNum:
		return -1 // numeric identifiers sort first
	case bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Classify returns the release channel of the version.
// A version is a Snapshot when its prerelease is exactly a non-numeric
// suffix followed by a numeric counter (e.g. "canary.12"); any other
// non-empty prerelease is Prerelease; otherwise Stable.
func (v Version) Classify() Stability {
	switch {
	case len(v.Pre) == 0:
		return Stable
	case len(v.Pre) == 2 && !isNumeric(v.Pre[0]) && isNumeric(v.Pre[1]):
		return Snapshot
	default:
		return Prerelease
	}
}

// Relationship compares two versions for upgrade reporting.
// Versions are Incompatible when a caret range anchored at the older one
// would not admit the newer one (differing major, or differing minor
// below 1.0.0).
func (v Version) Relationship(o Version) Relationship {
	if v.Major != o.Major || (v.Major == 0 && v.Minor != o.Minor) {
		return Incompatible
	}
	switch v.Compare(o) {
	case -1:
		return Older
	case 1:
		return Newer
	default:
		return Same
	}
}

// Bumped returns the version advanced by the given bump kind.
// The suffix is only consulted for BumpSnapshot, where it names the
// snapshot channel; pass "" to reuse an existing channel or default to
// "snapshot".
//
// Bump semantics:
//   - Major:      (M+1).0.0, prerelease dropped
//   - Minor:      M.(m+1).0, prerelease dropped
//   - Patch:      M.m.(p+1), prerelease dropped
//   - Prerelease: trailing numeric identifier incremented, "-0" appended
//     to an existing prerelease, or (p+1)-0 from a stable version
//   - Snapshot:   base + "-" + suffix + "." + (counter+1 or 0)
//   - None:       identity
func (v Version) Bumped(kind Bump, suffix string) Version {
	switch kind {
	case BumpMajor:
		return Version{Major: v.Major + 1}
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	case BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	case BumpPrerelease:
		return v.bumpPrerelease()
	case BumpSnapshot:
		return v.NextSnapshot(suffix)
	default:
		return v
	}
}

func (v Version) bumpPrerelease() Version {
	out := v
	out.Build = ""
	// A stable version starts a prerelease on the next patch, matching
	// npm's inc(v, "prerelease"). Going to v-0 would sort backwards.
	if len(v.Pre) == 0 {
		out.Patch++
		out.Pre = []string{"0"}
		return out
	}
	out.Pre = append([]string(nil), v.Pre...)
	last := out.Pre[len(out.Pre)-1]
	if isNumeric(last) {
		n, _ := strconv.ParseUint(last, 10, 64)
		out.Pre[len(out.Pre)-1] = strconv.FormatUint(n+1, 10)
		return out
	}
	out.Pre = append(out.Pre, "0")
	return out
}

// NextSnapshot returns the next snapshot of the version's base under the
// given suffix. If v is already a snapshot on the same suffix, its
// counter advances; otherwise the counter starts at 0. An empty suffix
// reuses v's snapshot channel when present, or defaults to "snapshot".
func (v Version) NextSnapshot(suffix string) Version {
	if suffix == "" {
		if v.Classify() == Snapshot {
			suffix = v.Pre[0]
		} else {
			suffix = "snapshot"
		}
	}

	counter := uint64(0)
	if v.Classify() == Snapshot && v.Pre[0] == suffix {
		n, _ := strconv.ParseUint(v.Pre[1], 10, 64)
		counter = n + 1
	}

	out := v.Base()
	out.Pre = []string{suffix, strconv.FormatUint(counter, 10)}
	return out
}
