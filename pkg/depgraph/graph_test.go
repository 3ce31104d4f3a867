package depgraph

import (
	"testing"

	"github.com/matzehuels/cascade/pkg/pm"
	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// pkgDef declares a test package as name, version, and dependency
// specifiers keyed by target name.
type pkgDef struct {
	name    string
	version string
	deps    map[string]string
	devDeps map[string]string
}

func buildWorkspace(t *testing.T, defs []pkgDef) *workspace.Workspace {
	t.Helper()
	var pkgs []*workspace.Package
	for _, def := range defs {
		p := &workspace.Package{
			Name:    def.name,
			Version: semver.MustParse(def.version),
			Dir:     "/ws/" + def.name,
			Kind:    workspace.KindLibrary,
		}
		for target, spec := range def.deps {
			p.Dependencies = append(p.Dependencies, workspace.Dependency{
				From:      def.name,
				Target:    target,
				Specifier: spec,
				Protocol:  workspace.ParseProtocol(spec),
				Kind:      workspace.DepRuntime,
			})
		}
		for target, spec := range def.devDeps {
			p.Dependencies = append(p.Dependencies, workspace.Dependency{
				From:      def.name,
				Target:    target,
				Specifier: spec,
				Protocol:  workspace.ParseProtocol(spec),
				Kind:      workspace.DepDev,
			})
		}
		pkgs = append(pkgs, p)
	}
	ws, err := workspace.New("/ws", pm.Npm, pkgs)
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestTopoOrder_Linear(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "app", version: "1.0.0", deps: map[string]string{"lib": "^1.0.0"}},
		{name: "lib", version: "1.0.0", deps: map[string]string{"util": "^1.0.0"}},
		{name: "util", version: "1.0.0"},
	})

	order := New(ws).TopoOrder()
	want := []string{"app", "lib", "util"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("TopoOrder() = %v, want %v", order, want)
		}
	}
}

func TestTopoOrder_LexicographicTies(t *testing.T) {
	// No edges at all: pure tie-break.
	ws := buildWorkspace(t, []pkgDef{
		{name: "zeta", version: "1.0.0"},
		{name: "alpha", version: "1.0.0"},
		{name: "mid", version: "1.0.0"},
	})

	order := New(ws).TopoOrder()
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("TopoOrder() = %v, want %v", order, want)
		}
	}
}

func TestTopoOrder_CycleStable(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"b": "^1.0.0"}},
		{name: "b", version: "1.0.0", deps: map[string]string{"a": "^1.0.0"}},
	})
	g := New(ws)

	order, breaks := g.OrderingWithBreaks()
	if len(order) != 2 {
		t.Fatalf("order = %v, want 2 entries", order)
	}
	if len(breaks) != 1 {
		t.Fatalf("breaks = %v, want 1 entry", breaks)
	}
	// Largest edge in {a,b} is b→a, so a depends on b and emits first.
	if breaks[0] != (Edge{From: "b", To: "a"}) {
		t.Errorf("break = %+v, want b→a", breaks[0])
	}
	if order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want [a b]", order)
	}

	// The break is ordering-only: the model keeps both edges.
	if got := len(g.Edges()); got != 2 {
		t.Errorf("Edges() = %d, want 2 (model unchanged)", got)
	}

	// Stability across runs.
	again, _ := g.OrderingWithBreaks()
	for i := range order {
		if order[i] != again[i] {
			t.Fatalf("order not stable: %v vs %v", order, again)
		}
	}
}

func TestCycles(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"b": "^1.0.0"}},
		{name: "b", version: "1.0.0", deps: map[string]string{"c": "^1.0.0"}},
		{name: "c", version: "1.0.0", deps: map[string]string{"a": "^1.0.0"}},
		{name: "solo", version: "1.0.0"},
	})

	cycles := New(ws).Cycles()
	if len(cycles) != 1 {
		t.Fatalf("Cycles() = %v, want one cycle", cycles)
	}
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if cycles[0][i] != name {
			t.Fatalf("cycle = %v, want %v", cycles[0], want)
		}
	}
}

func TestCycles_SelfLoop(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"a": "^1.0.0"}},
	})

	cycles := New(ws).Cycles()
	if len(cycles) != 1 || len(cycles[0]) != 1 || cycles[0][0] != "a" {
		t.Errorf("Cycles() = %v, want [[a]]", cycles)
	}
}

func TestCycles_None(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"b": "^1.0.0"}},
		{name: "b", version: "1.0.0"},
	})
	if cycles := New(ws).Cycles(); len(cycles) != 0 {
		t.Errorf("Cycles() = %v, want none", cycles)
	}
}

func TestClosureDependents(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "app", version: "1.0.0", deps: map[string]string{"lib": "^1.0.0"}},
		{name: "lib", version: "1.0.0", deps: map[string]string{"util": "^1.0.0"}},
		{name: "util", version: "1.0.0"},
		{name: "other", version: "1.0.0"},
	})
	g := New(ws)

	got := g.ClosureDependents([]string{"util"}, DefaultKinds())
	want := []string{"app", "lib"}
	if len(got) != len(want) {
		t.Fatalf("ClosureDependents(util) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ClosureDependents(util) = %v, want %v", got, want)
		}
	}
}

func TestClosureDependents_DevFiltered(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "tooling", version: "1.0.0", devDeps: map[string]string{"util": "^1.0.0"}},
		{name: "util", version: "1.0.0"},
	})
	g := New(ws)

	if got := g.ClosureDependents([]string{"util"}, DefaultKinds()); len(got) != 0 {
		t.Errorf("closure without dev = %v, want empty", got)
	}
	got := g.ClosureDependents([]string{"util"}, DefaultKinds().WithDev())
	if len(got) != 1 || got[0] != "tooling" {
		t.Errorf("closure with dev = %v, want [tooling]", got)
	}
}

func TestClosureDeps(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "app", version: "1.0.0", deps: map[string]string{"lib": "^1.0.0"}},
		{name: "lib", version: "1.0.0", deps: map[string]string{"util": "^1.0.0"}},
		{name: "util", version: "1.0.0"},
	})

	got := New(ws).ClosureDeps([]string{"app"}, DefaultKinds())
	if len(got) != 2 || got[0] != "lib" || got[1] != "util" {
		t.Errorf("ClosureDeps(app) = %v, want [lib util]", got)
	}
}

func TestClosure_CycleSafe(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"b": "^1.0.0"}},
		{name: "b", version: "1.0.0", deps: map[string]string{"a": "^1.0.0"}},
	})

	got := New(ws).ClosureDependents([]string{"a"}, DefaultKinds())
	// b depends on a; a re-enters through the cycle.
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("ClosureDependents(a) = %v, want [a b]", got)
	}
}

func TestValidate(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"b": "^1.0.0", "ghost": "workspace:*"}},
		{name: "b", version: "1.0.0", deps: map[string]string{"a": "^1.0.0"}},
		{name: "island", version: "1.0.0"},
	})

	report := Validate(ws)
	if !report.CycleDetected {
		t.Error("CycleDetected = false, want true")
	}
	if len(report.MissingDependencies) != 1 {
		t.Fatalf("MissingDependencies = %v, want one entry", report.MissingDependencies)
	}
	md := report.MissingDependencies[0]
	if md.From != "a" || md.To != "ghost" || md.Specifier != "workspace:*" {
		t.Errorf("missing dep = %+v", md)
	}
	if len(report.Unreachable) != 1 || report.Unreachable[0] != "island" {
		t.Errorf("Unreachable = %v, want [island]", report.Unreachable)
	}
	if report.Clean() {
		t.Error("Clean() = true, want false")
	}
}

func TestValidate_VersionConflict(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"lib": "^1.0.0"}},
		{name: "b", version: "1.0.0", deps: map[string]string{"lib": "^2.0.0"}},
		{name: "lib", version: "1.0.0"},
	})

	report := Validate(ws)
	specs, ok := report.VersionConflicts["lib"]
	if !ok {
		t.Fatalf("VersionConflicts = %v, want lib entry", report.VersionConflicts)
	}
	if len(specs) != 2 || specs[0] != "^1.0.0" || specs[1] != "^2.0.0" {
		t.Errorf("conflict specs = %v", specs)
	}
}

func TestValidate_CompatibleRangesNoConflict(t *testing.T) {
	ws := buildWorkspace(t, []pkgDef{
		{name: "a", version: "1.0.0", deps: map[string]string{"lib": "^1.0.0"}},
		{name: "b", version: "1.0.0", deps: map[string]string{"lib": "~1.2.0"}},
		{name: "lib", version: "1.2.5"},
	})

	report := Validate(ws)
	if len(report.VersionConflicts) != 0 {
		t.Errorf("VersionConflicts = %v, want none", report.VersionConflicts)
	}
}
