package classify

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cascade/pkg/semver"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestClassify_DefaultRules(t *testing.T) {
	rules := DefaultRules()
	ctx := context.Background()

	tests := []struct {
		name    string
		files   []FileChange
		wantSig Significance
		wantBmp semver.Bump
	}{
		{
			name:    "source change is moderate",
			files:   []FileChange{{Path: "src/index.ts"}},
			wantSig: SigModerate,
			wantBmp: semver.BumpMinor,
		},
		{
			name:    "test change is trivial",
			files:   []FileChange{{Path: "src/index.test.ts"}},
			wantSig: SigTrivial,
			wantBmp: semver.BumpPatch,
		},
		{
			name:    "docs change is trivial",
			files:   []FileChange{{Path: "README.md"}},
			wantSig: SigTrivial,
			wantBmp: semver.BumpPatch,
		},
		{
			name:    "manifest change is minor",
			files:   []FileChange{{Path: "package.json"}},
			wantSig: SigMinor,
			wantBmp: semver.BumpPatch,
		},
		{
			name:    "lockfile alone is none",
			files:   []FileChange{{Path: "pnpm-lock.yaml"}},
			wantSig: SigNone,
			wantBmp: semver.BumpNone,
		},
		{
			name: "aggregate takes the maximum",
			files: []FileChange{
				{Path: "README.md"},
				{Path: "src/core.ts"},
				{Path: "src/core.test.ts"},
			},
			wantSig: SigModerate,
			wantBmp: semver.BumpMinor,
		},
		{
			name:    "no files is none",
			files:   nil,
			wantSig: SigNone,
			wantBmp: semver.BumpNone,
		},
		{
			name:    "unrecognized files degrade to unknown with patch",
			files:   []FileChange{{Path: "assets/logo.png"}},
			wantSig: SigUnknown,
			wantBmp: semver.BumpPatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Classify(ctx, "pkg-a", tt.files)
			if got.Significance != tt.wantSig {
				t.Errorf("Significance = %v, want %v", got.Significance, tt.wantSig)
			}
			if got.Bump != tt.wantBmp {
				t.Errorf("Bump = %v, want %v", got.Bump, tt.wantBmp)
			}
		})
	}
}

func TestClassify_FilesSorted(t *testing.T) {
	got := DefaultRules().Classify(context.Background(), "pkg-a", []FileChange{
		{Path: "zz.ts"},
		{Path: "aa.ts"},
		{Path: "mm.ts"},
	})
	want := []string{"aa.ts", "mm.ts", "zz.ts"}
	for i, path := range want {
		if got.Files[i].Path != path {
			t.Fatalf("Files = %v, want order %v", got.Files, want)
		}
	}
}

func TestClassify_ThresholdEscalation(t *testing.T) {
	rules := Compile(Config{
		TypeRules: []TypeRuleConfig{
			{Pattern: "**/*.md", Kind: "docs"},
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Kind: "docs", Significance: "trivial"},
		},
		Thresholds: []ThresholdConfig{
			{MinFiles: 3, Significance: "major"},
		},
		Bumps: map[string]string{"trivial": "patch", "major": "major"},
	}, quietLogger())

	small := rules.Classify(context.Background(), "pkg-a", []FileChange{
		{Path: "a.md"}, {Path: "b.md"},
	})
	if small.Significance != SigTrivial {
		t.Errorf("below threshold: Significance = %v, want trivial", small.Significance)
	}

	big := rules.Classify(context.Background(), "pkg-a", []FileChange{
		{Path: "a.md"}, {Path: "b.md"}, {Path: "c.md"},
	})
	if big.Significance != SigMajor {
		t.Errorf("at threshold: Significance = %v, want major", big.Significance)
	}
	if big.Bump != semver.BumpMajor {
		t.Errorf("at threshold: Bump = %v, want major", big.Bump)
	}
}

func TestClassify_ByteThreshold(t *testing.T) {
	rules := Compile(Config{
		TypeRules: []TypeRuleConfig{
			{Pattern: "**/*.ts", Kind: "source"},
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Kind: "source", Significance: "minor"},
		},
		Thresholds: []ThresholdConfig{
			{MinBytes: 1000, Significance: "moderate"},
		},
		Bumps: map[string]string{"minor": "patch", "moderate": "minor"},
	}, quietLogger())

	got := rules.Classify(context.Background(), "pkg-a", []FileChange{
		{Path: "big.ts", BytesChanged: 1500},
	})
	if got.Significance != SigModerate {
		t.Errorf("Significance = %v, want moderate", got.Significance)
	}
}

func TestClassify_FirstMatchingRuleWins(t *testing.T) {
	rules := Compile(Config{
		TypeRules: []TypeRuleConfig{
			{Pattern: "src/generated/**", Kind: "build"},
			{Pattern: "src/**", Kind: "source"},
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Kind: "build", Significance: "trivial"},
			{Kind: "source", Significance: "major"},
		},
		Bumps: map[string]string{"trivial": "patch", "major": "major"},
	}, quietLogger())

	got := rules.Classify(context.Background(), "pkg-a", []FileChange{
		{Path: "src/generated/schema.ts"},
	})
	if got.Files[0].Kind != KindBuild {
		t.Errorf("Kind = %v, want build", got.Files[0].Kind)
	}
	if got.Significance != SigTrivial {
		t.Errorf("Significance = %v, want trivial", got.Significance)
	}
}

func TestClassify_RegexRule(t *testing.T) {
	rules := Compile(Config{
		TypeRules: []TypeRuleConfig{
			{Regex: `(?i)changelog`, Kind: "docs"},
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Kind: "docs", Significance: "trivial"},
		},
		Bumps: map[string]string{"trivial": "patch"},
	}, quietLogger())

	got := rules.Classify(context.Background(), "pkg-a", []FileChange{{Path: "CHANGELOG.md"}})
	if got.Files[0].Kind != KindDocs {
		t.Errorf("Kind = %v, want docs", got.Files[0].Kind)
	}
}

func TestCompile_DropsInvalidRules(t *testing.T) {
	rules := Compile(Config{
		TypeRules: []TypeRuleConfig{
			{Pattern: "src/[", Kind: "source"},     // bad glob
			{Regex: "(", Kind: "source"},           // bad regex
			{Pattern: "src/**", Kind: "spaceship"}, // unknown kind
			{Pattern: "src/**", Kind: "source"},    // valid
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Significance: "moderate"},                  // no selector
			{Kind: "source", Significance: "galactic"},  // unknown level
			{Kind: "source", Significance: "moderate"},  // valid
		},
		Thresholds: []ThresholdConfig{
			{Significance: "major"},               // no limit
			{MinFiles: 10, Significance: "huge"},  // unknown level
			{MinFiles: 10, Significance: "major"}, // valid
		},
		Bumps: map[string]string{
			"moderate": "minor",
			"major":    "enormous", // unknown bump
		},
	}, quietLogger())

	if len(rules.typeRules) != 1 {
		t.Errorf("typeRules = %d, want 1", len(rules.typeRules))
	}
	if len(rules.sigRules) != 1 {
		t.Errorf("sigRules = %d, want 1", len(rules.sigRules))
	}
	if len(rules.thresholds) != 1 {
		t.Errorf("thresholds = %d, want 1", len(rules.thresholds))
	}
	if len(rules.bumps) != 1 {
		t.Errorf("bumps = %d, want 1", len(rules.bumps))
	}

	// The surviving rules still classify.
	got := rules.Classify(context.Background(), "pkg-a", []FileChange{{Path: "src/x.ts"}})
	if got.Significance != SigModerate || got.Bump != semver.BumpMinor {
		t.Errorf("got %v/%v, want moderate/minor", got.Significance, got.Bump)
	}
}

func TestClassify_PatternScopedSignificance(t *testing.T) {
	rules := Compile(Config{
		TypeRules: []TypeRuleConfig{
			{Pattern: "**/*.ts", Kind: "source"},
		},
		SignificanceRules: []SignificanceRuleConfig{
			{Pattern: "src/public-api.ts", Significance: "major"},
			{Kind: "source", Significance: "moderate"},
		},
		Bumps: map[string]string{"moderate": "minor", "major": "major"},
	}, quietLogger())

	got := rules.Classify(context.Background(), "pkg-a", []FileChange{
		{Path: "src/public-api.ts"},
		{Path: "src/util.ts"},
	})
	if got.Significance != SigMajor {
		t.Errorf("Significance = %v, want major", got.Significance)
	}
	if got.Files[0].Significance != SigMajor || got.Files[1].Significance != SigModerate {
		t.Errorf("per-file significances = %v", got.Files)
	}
}
