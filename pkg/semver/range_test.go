package semver

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		v, rng string
		want   bool
	}{
		// Wildcards
		{"1.2.3", "*", true},
		{"1.2.3", "", true},
		{"1.2.3", "x", true},

		// Exact
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "=1.2.3", true},
		{"1.2.4", "1.2.3", false},

		// Caret
		{"1.2.3", "^1.2.3", true},
		{"1.9.9", "^1.2.3", true},
		{"2.0.0", "^1.2.3", false},
		{"1.2.2", "^1.2.3", false},

		// Caret below 1.0 behaves like tilde on the minor
		{"0.2.3", "^0.2.3", true},
		{"0.2.9", "^0.2.3", true},
		{"0.3.0", "^0.2.3", false},
		{"0.0.3", "^0.0.3", true},
		{"0.0.4", "^0.0.3", false},

		// Tilde
		{"1.2.3", "~1.2.3", true},
		{"1.2.9", "~1.2.3", true},
		{"1.3.0", "~1.2.3", false},

		// Comparators
		{"1.5.0", ">=1.0.0", true},
		{"0.9.0", ">=1.0.0", false},
		{"1.5.0", ">=1.0.0 <2.0.0", true},
		{"2.0.0", ">=1.0.0 <2.0.0", false},

		// Alternatives
		{"1.0.0", "1.0.0 || 2.0.0", true},
		{"2.0.0", "1.0.0 || 2.0.0", true},
		{"3.0.0", "1.0.0 || 2.0.0", false},

		// Prereleases require an anchor on the same core
		{"1.2.3-rc.1", "^1.2.3", false},
		{"1.2.3-rc.1", "^1.2.3-rc.0", true},
		{"1.2.4-rc.1", "^1.2.3-rc.0", false},

		// Garbage never matches
		{"1.2.3", "latest", false},
		{"1.2.3", "file:../a", false},
	}
	for _, tt := range tests {
		if got := Satisfies(MustParse(tt.v), tt.rng); got != tt.want {
			t.Errorf("Satisfies(%s, %q) = %v, want %v", tt.v, tt.rng, got, tt.want)
		}
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, rng := range []string{"^a.b.c", ">>1.0.0", "1.0.0 ||", "~"} {
		if _, err := ParseRange(rng); err == nil {
			t.Errorf("ParseRange(%q) = nil error, want ParseError", rng)
		}
	}
}
