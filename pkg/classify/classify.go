// Package classify maps sets of changed files to a change significance
// and a suggested version bump.
//
// Classification is driven by a declarative rule list (usually loaded
// from cascade.toml): path patterns assign each file a change kind,
// kind- or pattern-based rules assign significances, numeric thresholds
// escalate the aggregate, and a final table maps significance to bump.
// Patterns compile once and are cached on the rule set; invalid
// patterns are dropped with a warning at load time and never fail
// classification.
//
// Classification itself never fails: when no rule matches, the result
// degrades to an unknown significance with a patch bump.
package classify

import (
	"context"
	"sort"

	"github.com/matzehuels/cascade/pkg/observability"
	"github.com/matzehuels/cascade/pkg/semver"
)

// ChangeKind categorizes a changed file.
type ChangeKind string

// Change kinds, ordered roughly by how much they matter to consumers.
const (
	KindSource   ChangeKind = "source"
	KindTest     ChangeKind = "test"
	KindDocs     ChangeKind = "docs"
	KindConfig   ChangeKind = "config"
	KindBuild    ChangeKind = "build"
	KindManifest ChangeKind = "manifest"
	KindLock     ChangeKind = "lock"
	KindOther    ChangeKind = "other"
)

// Significance grades how consequential a change is. The order of the
// constants defines escalation: aggregation takes the maximum.
type Significance int

// Significance levels. Unknown marks the degraded result when no rule
// matched anything.
const (
	SigNone Significance = iota
	SigTrivial
	SigMinor
	SigModerate
	SigMajor
	SigCritical
	SigUnknown
)

var significanceNames = map[Significance]string{
	SigNone:     "none",
	SigTrivial:  "trivial",
	SigMinor:    "minor",
	SigModerate: "moderate",
	SigMajor:    "major",
	SigCritical: "critical",
	SigUnknown:  "unknown",
}

// String returns the significance name used in configs and reports.
func (s Significance) String() string { return significanceNames[s] }

// ParseSignificance converts a name back into a Significance.
func ParseSignificance(name string) (Significance, bool) {
	for s, n := range significanceNames {
		if n == name {
			return s, true
		}
	}
	return SigUnknown, false
}

// FileChange is one changed file with an optional size delta in bytes.
type FileChange struct {
	Path         string
	BytesChanged int64
}

// FileResult is the classification of a single file.
type FileResult struct {
	Path         string
	Kind         ChangeKind
	Significance Significance
}

// Result is the aggregate classification for one package.
type Result struct {
	Package      string
	Files        []FileResult
	Significance Significance
	Bump         semver.Bump
}

// Classify grades the changed files of a package against the rule set.
// Files are sorted lexicographically before classification so the
// result is independent of input order.
func (r *Rules) Classify(ctx context.Context, pkg string, changes []FileChange) Result {
	sorted := append([]FileChange(nil), changes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	result := Result{Package: pkg, Significance: SigNone}

	matchedAny := false
	var totalBytes int64
	for _, fc := range sorted {
		totalBytes += fc.BytesChanged
		kind, kindMatched := r.kindOf(fc.Path)
		sig, sigMatched := r.significanceOf(fc.Path, kind)
		if kindMatched || sigMatched {
			matchedAny = true
		}
		result.Files = append(result.Files, FileResult{Path: fc.Path, Kind: kind, Significance: sig})
		if sig > result.Significance && sig != SigUnknown {
			result.Significance = sig
		}
	}

	// Threshold escalations apply last, over the aggregate.
	for _, th := range r.thresholds {
		if th.matches(len(sorted), totalBytes) && th.elevate > result.Significance {
			result.Significance = th.elevate
		}
	}

	if len(sorted) > 0 && !matchedAny {
		// Degraded mode: something changed but no rule recognizes it.
		result.Significance = SigUnknown
		result.Bump = semver.BumpPatch
	} else {
		result.Bump = r.bumpFor(result.Significance)
	}

	observability.Engine().OnClassify(ctx, pkg, len(sorted), result.Significance.String())
	return result
}

// kindOf returns the change kind of the first matching type rule, in
// declared order, and whether any rule matched.
func (r *Rules) kindOf(path string) (ChangeKind, bool) {
	for _, rule := range r.typeRules {
		if rule.pattern.match(path) {
			return rule.kind, true
		}
	}
	return KindOther, false
}

// significanceOf returns the significance of the first matching
// significance rule. Rules match by pattern, by kind, or both.
func (r *Rules) significanceOf(path string, kind ChangeKind) (Significance, bool) {
	for _, rule := range r.sigRules {
		if rule.kind != "" && rule.kind != kind {
			continue
		}
		if rule.pattern != nil && !rule.pattern.match(path) {
			continue
		}
		return rule.significance, true
	}
	return SigNone, false
}

// bumpFor maps an aggregate significance to the suggested bump.
func (r *Rules) bumpFor(sig Significance) semver.Bump {
	if b, ok := r.bumps[sig]; ok {
		return b
	}
	// Built-in fallback used when the config omits a level.
	switch sig {
	case SigNone:
		return semver.BumpNone
	case SigTrivial, SigMinor:
		return semver.BumpPatch
	case SigModerate:
		return semver.BumpMinor
	case SigMajor, SigCritical:
		return semver.BumpMajor
	default:
		return semver.BumpPatch
	}
}
