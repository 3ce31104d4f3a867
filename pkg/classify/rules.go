package classify

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/semver"
)

// Config is the declarative classifier section of cascade.toml.
//
//	[[classifier.type_rule]]
//	pattern = "src/**"
//	kind = "source"
//
//	[[classifier.significance_rule]]
//	kind = "source"
//	significance = "moderate"
//
//	[[classifier.threshold]]
//	min_files = 25
//	significance = "major"
//
//	[classifier.bumps]
//	moderate = "minor"
type Config struct {
	TypeRules         []TypeRuleConfig         `toml:"type_rule"`
	SignificanceRules []SignificanceRuleConfig `toml:"significance_rule"`
	Thresholds        []ThresholdConfig        `toml:"threshold"`
	Bumps             map[string]string        `toml:"bumps"`
}

// TypeRuleConfig assigns a change kind to paths matching a pattern.
// Pattern is a doublestar glob; Regex is an alternative for rules a
// glob cannot express. Exactly one of the two should be set.
type TypeRuleConfig struct {
	Pattern string `toml:"pattern"`
	Regex   string `toml:"regex"`
	Kind    string `toml:"kind"`
}

// SignificanceRuleConfig assigns a significance by kind, by pattern, or
// both. Rules are evaluated in declared order; the first match wins.
type SignificanceRuleConfig struct {
	Pattern      string `toml:"pattern"`
	Regex        string `toml:"regex"`
	Kind         string `toml:"kind"`
	Significance string `toml:"significance"`
}

// ThresholdConfig escalates the aggregate significance when a change
// set is large enough. Zero-valued limits are ignored.
type ThresholdConfig struct {
	MinFiles     int    `toml:"min_files"`
	MinBytes     int64  `toml:"min_bytes"`
	Significance string `toml:"significance"`
}

// matcher is a compiled path pattern, either a glob or a regex.
type matcher struct {
	glob string
	re   *regexp.Regexp
}

func (m *matcher) match(path string) bool {
	if m == nil {
		return false
	}
	if m.re != nil {
		return m.re.MatchString(path)
	}
	ok, err := doublestar.Match(m.glob, path)
	return err == nil && ok
}

// compileMatcher validates and compiles one pattern pair. Globs are
// validated eagerly so a bad pattern is rejected at load time rather
// than silently never matching.
func compileMatcher(glob, regex string) (*matcher, error) {
	switch {
	case glob != "" && regex != "":
		return nil, errors.New(errors.ErrCodeParse, "rule sets both pattern and regex")
	case glob != "":
		if !doublestar.ValidatePattern(glob) {
			return nil, errors.New(errors.ErrCodeParse, "invalid glob %q", glob)
		}
		return &matcher{glob: glob}, nil
	case regex != "":
		re, err := regexp.Compile(regex)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "invalid regex %q", regex)
		}
		return &matcher{re: re}, nil
	default:
		return nil, nil
	}
}

type typeRule struct {
	pattern *matcher
	kind    ChangeKind
}

type sigRule struct {
	pattern      *matcher
	kind         ChangeKind
	significance Significance
}

type threshold struct {
	minFiles int
	minBytes int64
	elevate  Significance
}

func (t threshold) matches(files int, bytes int64) bool {
	if t.minFiles > 0 && files < t.minFiles {
		return false
	}
	if t.minBytes > 0 && bytes < t.minBytes {
		return false
	}
	return t.minFiles > 0 || t.minBytes > 0
}

// Rules is a compiled rule set ready for classification. Build one with
// Compile or DefaultRules; the zero value matches nothing.
type Rules struct {
	typeRules  []typeRule
	sigRules   []sigRule
	thresholds []threshold
	bumps      map[Significance]semver.Bump
}

// Compile turns a Config into a ready rule set. Rules with invalid
// patterns or unknown names are dropped with a warning, never an
// error: a bad rule must not block releases. A nil logger falls back
// to log.Default().
func Compile(cfg Config, logger *log.Logger) *Rules {
	if logger == nil {
		logger = log.Default()
	}
	r := &Rules{bumps: map[Significance]semver.Bump{}}

	for _, tc := range cfg.TypeRules {
		m, err := compileMatcher(tc.Pattern, tc.Regex)
		if err != nil || m == nil {
			logger.Warn("dropping type rule", "pattern", tc.Pattern, "regex", tc.Regex, "err", err)
			continue
		}
		kind := ChangeKind(tc.Kind)
		if !validKind(kind) {
			logger.Warn("dropping type rule with unknown kind", "kind", tc.Kind)
			continue
		}
		r.typeRules = append(r.typeRules, typeRule{pattern: m, kind: kind})
	}

	for _, sc := range cfg.SignificanceRules {
		m, err := compileMatcher(sc.Pattern, sc.Regex)
		if err != nil {
			logger.Warn("dropping significance rule", "pattern", sc.Pattern, "regex", sc.Regex, "err", err)
			continue
		}
		sig, ok := ParseSignificance(sc.Significance)
		if !ok || sig == SigUnknown {
			logger.Warn("dropping significance rule with unknown level", "significance", sc.Significance)
			continue
		}
		kind := ChangeKind(sc.Kind)
		if sc.Kind != "" && !validKind(kind) {
			logger.Warn("dropping significance rule with unknown kind", "kind", sc.Kind)
			continue
		}
		if m == nil && sc.Kind == "" {
			logger.Warn("dropping significance rule with no selector")
			continue
		}
		r.sigRules = append(r.sigRules, sigRule{pattern: m, kind: kind, significance: sig})
	}

	for _, th := range cfg.Thresholds {
		sig, ok := ParseSignificance(th.Significance)
		if !ok || sig == SigUnknown {
			logger.Warn("dropping threshold with unknown level", "significance", th.Significance)
			continue
		}
		if th.MinFiles <= 0 && th.MinBytes <= 0 {
			logger.Warn("dropping threshold with no limit")
			continue
		}
		r.thresholds = append(r.thresholds, threshold{minFiles: th.MinFiles, minBytes: th.MinBytes, elevate: sig})
	}

	for name, bump := range cfg.Bumps {
		sig, ok := ParseSignificance(name)
		if !ok {
			logger.Warn("dropping bump mapping with unknown level", "significance", name)
			continue
		}
		b, err := semver.ParseBump(bump)
		if err != nil {
			logger.Warn("dropping bump mapping", "significance", name, "err", err)
			continue
		}
		r.bumps[sig] = b
	}

	return r
}

func validKind(k ChangeKind) bool {
	switch k {
	case KindSource, KindTest, KindDocs, KindConfig, KindBuild, KindManifest, KindLock, KindOther:
		return true
	}
	return false
}

// DefaultRules returns the built-in rule set used when cascade.toml has
// no classifier section. It covers the common shape of an npm package:
// tests and docs are trivial, source is moderate, manifests are minor,
// and very large change sets escalate to major.
func DefaultRules() *Rules {
	cfg := Config{
		TypeRules: []TypeRuleConfig{
			{Pattern: "**/*.{test,spec}.{js,jsx,ts,tsx}", Kind: "test"},
			{Pattern: "**/{test,tests,__tests__}/**", Kind: "test"},
			{Pattern: "**/*.{md,mdx,txt}", Kind: "docs"},
			{Pattern: "**/docs/**", Kind: "docs"},
			{Pattern: "**/package.json", Kind: "manifest"},
			{Pattern: "**/{package-lock.json,pnpm-lock.yaml,yarn.lock,bun.lockb,bun.lock}", Kind: "lock"},
			{Pattern: "**/{tsconfig,babel.config,jest.config,vite.config,rollup.config}*", Kind: "build"},
			{Pattern: "**/.*rc", Kind: "config"},
			{Pattern: "**/.*rc.{js,json,yaml,yml}", Kind: "config"},
			{Pattern: "**/*.{js,jsx,ts,tsx,mjs,cjs,css,scss,json}", Kind: "source"},
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Kind: "lock", Significance: "none"},
			{Kind: "test", Significance: "trivial"},
			{Kind: "docs", Significance: "trivial"},
			{Kind: "config", Significance: "trivial"},
			{Kind: "build", Significance: "minor"},
			{Kind: "manifest", Significance: "minor"},
			{Kind: "source", Significance: "moderate"},
		},
		Thresholds: []ThresholdConfig{
			{MinFiles: 50, Significance: "major"},
		},
		Bumps: map[string]string{
			"none":     "none",
			"trivial":  "patch",
			"minor":    "patch",
			"moderate": "minor",
			"major":    "major",
			"critical": "major",
		},
	}
	return Compile(cfg, nil)
}
