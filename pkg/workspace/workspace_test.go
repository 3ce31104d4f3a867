package workspace

import (
	"context"
	"fmt"
	"testing"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/pm"
	"github.com/matzehuels/cascade/pkg/semver"
)

func manifest(name, version string, deps map[string]string) []byte {
	out := fmt.Sprintf("{\n  \"name\": %q,\n  \"version\": %q", name, version)
	if len(deps) > 0 {
		out += ",\n  \"dependencies\": {"
		first := true
		for k, v := range deps {
			if !first {
				out += ","
			}
			out += fmt.Sprintf("\n    %q: %q", k, v)
			first = false
		}
		out += "\n  }"
	}
	return []byte(out + "\n}\n")
}

func seedWorkspace(t *testing.T) *fsio.MemFS {
	t.Helper()
	fs := fsio.NewMem()
	fs.Seed("/ws/package.json", []byte(`{"name":"root","private":true,"workspaces":["packages/*"]}`))
	fs.Seed("/ws/packages/core/package.json", manifest("core", "1.0.0", nil))
	fs.Seed("/ws/packages/app/package.json", manifest("app", "1.0.0", map[string]string{
		"core":  "^1.0.0",
		"react": "^18.0.0",
	}))
	return fs
}

func TestDiscover(t *testing.T) {
	ws, err := Discover(context.Background(), seedWorkspace(t), "/ws", pm.Npm)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	if got := ws.Names(); len(got) != 2 || got[0] != "app" || got[1] != "core" {
		t.Fatalf("Names() = %v, want [app core]", got)
	}

	core, ok := ws.Get("core")
	if !ok {
		t.Fatal("Get(core) not found")
	}
	if !core.Version.Equal(semver.MustParse("1.0.0")) {
		t.Errorf("core version = %s, want 1.0.0", core.Version)
	}
	if core.Kind != KindLibrary {
		t.Errorf("core kind = %s, want library", core.Kind)
	}
}

func TestDiscover_EdgeResolution(t *testing.T) {
	ws, err := Discover(context.Background(), seedWorkspace(t), "/ws", pm.Npm)
	if err != nil {
		t.Fatal(err)
	}

	deps := ws.DependenciesOf("app")
	if len(deps) != 2 {
		t.Fatalf("DependenciesOf(app) = %d edges, want 2", len(deps))
	}

	// Sorted by target: core before react.
	if deps[0].Target != "core" || deps[0].To != "core" {
		t.Errorf("edge 0 = %+v, want workspace edge to core", deps[0])
	}
	if deps[1].Target != "react" || deps[1].To != ExternalSentinel {
		t.Errorf("edge 1 = %+v, want external edge to react", deps[1])
	}
	if deps[1].IsWorkspaceEdge() {
		t.Error("external edge reported as workspace edge")
	}

	if got := ws.DependentsOf("core"); len(got) != 1 || got[0] != "app" {
		t.Errorf("DependentsOf(core) = %v, want [app]", got)
	}
}

func TestDiscover_DuplicateName(t *testing.T) {
	fs := fsio.NewMem()
	fs.Seed("/ws/package.json", []byte(`{"workspaces":["packages/*"]}`))
	fs.Seed("/ws/packages/a/package.json", manifest("dup", "1.0.0", nil))
	fs.Seed("/ws/packages/b/package.json", manifest("dup", "1.0.0", nil))

	_, err := Discover(context.Background(), fs, "/ws", pm.Npm)
	if !errors.Is(err, errors.ErrCodeDuplicate) {
		t.Errorf("Discover(dup) code = %s, want DUPLICATE_PACKAGE", errors.GetCode(err))
	}
}

func TestDiscover_UnparseableVersion(t *testing.T) {
	fs := fsio.NewMem()
	fs.Seed("/ws/package.json", []byte(`{"workspaces":["packages/*"]}`))
	fs.Seed("/ws/packages/a/package.json", manifest("a", "not-a-version", nil))

	_, err := Discover(context.Background(), fs, "/ws", pm.Npm)
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("Discover(bad version) code = %s, want PARSE", errors.GetCode(err))
	}
}

func TestDiscover_PnpmWorkspaceFile(t *testing.T) {
	fs := fsio.NewMem()
	fs.Seed("/ws/package.json", []byte(`{"name":"root","private":true}`))
	fs.Seed("/ws/pnpm-workspace.yaml", []byte("packages:\n  - \"libs/*\"\n"))
	fs.Seed("/ws/libs/util/package.json", manifest("util", "0.3.0", nil))

	ws, err := Discover(context.Background(), fs, "/ws", pm.Pnpm)
	if err != nil {
		t.Fatal(err)
	}
	if got := ws.Names(); len(got) != 1 || got[0] != "util" {
		t.Errorf("Names() = %v, want [util]", got)
	}
}

func TestDiscover_NegatedGlob(t *testing.T) {
	fs := fsio.NewMem()
	fs.Seed("/ws/package.json", []byte(`{"workspaces":["packages/*","!packages/skipme"]}`))
	fs.Seed("/ws/packages/keep/package.json", manifest("keep", "1.0.0", nil))
	fs.Seed("/ws/packages/skipme/package.json", manifest("skipme", "1.0.0", nil))

	ws, err := Discover(context.Background(), fs, "/ws", pm.Npm)
	if err != nil {
		t.Fatal(err)
	}
	if got := ws.Names(); len(got) != 1 || got[0] != "keep" {
		t.Errorf("Names() = %v, want [keep]", got)
	}
}

func TestDiscover_VersionedRootJoins(t *testing.T) {
	fs := fsio.NewMem()
	fs.Seed("/ws/package.json", []byte(`{"name":"mono","version":"2.0.0","workspaces":["packages/*"]}`))
	fs.Seed("/ws/packages/a/package.json", manifest("a", "1.0.0", nil))

	ws, err := Discover(context.Background(), fs, "/ws", pm.Npm)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ws.Get("mono"); !ok {
		t.Error("versioned root manifest should join the workspace")
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		spec string
		want Protocol
	}{
		{"^1.2.3", ProtocolVersionRange},
		{"~1.2.3", ProtocolVersionRange},
		{"1.2.3", ProtocolVersionRange},
		{"*", ProtocolVersionRange},
		{"workspace:*", ProtocolWorkspace},
		{"workspace:^", ProtocolWorkspace},
		{"file:../core", ProtocolFile},
		{"link:../core", ProtocolLink},
		{"portal:../core", ProtocolPortal},
		{"git+https://example.com/repo.git", ProtocolGit},
		{"github:user/repo", ProtocolGit},
	}
	for _, tt := range tests {
		if got := ParseProtocol(tt.spec); got != tt.want {
			t.Errorf("ParseProtocol(%q) = %s, want %s", tt.spec, got, tt.want)
		}
	}
}

func TestRewriteVersion(t *testing.T) {
	raw := []byte("{\n  \"name\": \"a\",\n  \"version\": \"1.0.0\",\n  \"dependencies\": {\"b\": \"1.0.0\"}\n}\n")

	out, err := RewriteVersion(raw, "1.0.0", "1.1.0")
	if err != nil {
		t.Fatalf("RewriteVersion() error: %v", err)
	}
	want := "{\n  \"name\": \"a\",\n  \"version\": \"1.1.0\",\n  \"dependencies\": {\"b\": \"1.0.0\"}\n}\n"
	if string(out) != want {
		t.Errorf("RewriteVersion() = %s, want %s", out, want)
	}
}

func TestRewriteVersion_NotFound(t *testing.T) {
	_, err := RewriteVersion([]byte(`{"name":"a"}`), "1.0.0", "2.0.0")
	if !errors.Is(err, errors.ErrCodeManifestWrite) {
		t.Errorf("RewriteVersion(missing) code = %s, want MANIFEST_WRITE_FAILED", errors.GetCode(err))
	}
}

func TestRewriteSpecifier(t *testing.T) {
	raw := []byte(`{"name":"app","version":"1.0.0","dependencies":{"core":"^1.0.0"}}`)

	out, err := RewriteSpecifier(raw, "core", "^1.0.0", "^1.0.1")
	if err != nil {
		t.Fatalf("RewriteSpecifier() error: %v", err)
	}
	want := `{"name":"app","version":"1.0.0","dependencies":{"core":"^1.0.1"}}`
	if string(out) != want {
		t.Errorf("RewriteSpecifier() = %s, want %s", out, want)
	}
}

func TestManifestKinds(t *testing.T) {
	tests := []struct {
		raw  string
		want PackageKind
	}{
		{`{"name":"a","version":"1.0.0"}`, KindLibrary},
		{`{"name":"a","version":"1.0.0","private":true}`, KindPrivate},
		{`{"name":"a","version":"1.0.0","bin":{"a":"cli.js"}}`, KindApplication},
		{`{"name":"a","version":"1.0.0","cascade":{"kind":"internal"}}`, KindInternal},
	}
	for _, tt := range tests {
		m, err := parseManifest("test", []byte(tt.raw))
		if err != nil {
			t.Fatalf("parseManifest(%s) error: %v", tt.raw, err)
		}
		if got := m.kind(); got != tt.want {
			t.Errorf("kind(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
