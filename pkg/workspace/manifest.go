package workspace

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/semver"
)

// manifestFile mirrors the subset of package.json the engine reads.
// The raw bytes are kept alongside so rewrites stay minimally invasive.
type manifestFile struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Private              bool              `json:"private"`
	Bin                  json.RawMessage   `json:"bin"`
	Workspaces           json.RawMessage   `json:"workspaces"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`

	// Cascade carries tool-specific manifest settings.
	Cascade struct {
		Kind string `json:"kind"`
	} `json:"cascade"`
}

// workspaceGlobs extracts the workspaces globs, which package.json
// allows either as a bare array or as {"packages": [...]}.
func (m *manifestFile) workspaceGlobs() []string {
	if len(m.Workspaces) == 0 {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(m.Workspaces, &arr); err == nil {
		return arr
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(m.Workspaces, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

func (m *manifestFile) kind() PackageKind {
	switch m.Cascade.Kind {
	case string(KindApplication), string(KindInternal), string(KindLibrary), string(KindPrivate):
		return PackageKind(m.Cascade.Kind)
	}
	if m.Private {
		return KindPrivate
	}
	if len(m.Bin) > 0 {
		return KindApplication
	}
	return KindLibrary
}

func parseManifest(path string, data []byte) (*manifestFile, error) {
	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse manifest").WithSubject(path)
	}
	return &m, nil
}

// buildPackage converts a parsed manifest into a Package. The version
// must parse; packages without a parseable version abort discovery with
// a precise location.
func buildPackage(dir, path string, data []byte, m *manifestFile) (*Package, error) {
	if m.Name == "" {
		return nil, errors.New(errors.ErrCodeParse, "manifest has no name").WithSubject(path)
	}
	v, err := semver.Parse(m.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "manifest version for %s", m.Name).WithSubject(path)
	}

	pkg := &Package{
		Name:         m.Name,
		Version:      v,
		Dir:          dir,
		ManifestPath: path,
		Manifest:     data,
		Kind:         m.kind(),
	}

	for kind, deps := range map[DepKind]map[string]string{
		DepRuntime:  m.Dependencies,
		DepDev:      m.DevDependencies,
		DepPeer:     m.PeerDependencies,
		DepOptional: m.OptionalDependencies,
	} {
		for name, spec := range deps {
			pkg.Dependencies = append(pkg.Dependencies, Dependency{
				From:      m.Name,
				To:        ExternalSentinel, // resolved against the workspace later
				Target:    name,
				Specifier: spec,
				Protocol:  ParseProtocol(spec),
				Kind:      kind,
			})
		}
	}
	return pkg, nil
}

// RewriteVersion replaces the manifest's top-level version field in the
// raw bytes, leaving everything else untouched. Returns
// MANIFEST_WRITE_FAILED when the field cannot be located, which guards
// against writing a manifest the engine does not understand.
func RewriteVersion(raw []byte, from, to string) ([]byte, error) {
	pattern := fmt.Sprintf(`("version"\s*:\s*)"%s"`, regexp.QuoteMeta(from))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestWrite, err, "compile version pattern")
	}
	if !re.Match(raw) {
		return nil, errors.New(errors.ErrCodeManifestWrite, "version %q not found in manifest", from)
	}
	out := re.ReplaceAll(raw, []byte(fmt.Sprintf(`${1}"%s"`, to)))
	return out, nil
}

// RewriteSpecifier replaces the specifier of the named dependency in
// the raw bytes. It matches the `"name": "old"` pair so that packages
// whose names collide with unrelated string values are not rewritten.
func RewriteSpecifier(raw []byte, dep, from, to string) ([]byte, error) {
	pattern := fmt.Sprintf(`("%s"\s*:\s*)"%s"`, regexp.QuoteMeta(dep), regexp.QuoteMeta(from))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestWrite, err, "compile specifier pattern")
	}
	if !re.Match(raw) {
		return nil, errors.New(errors.ErrCodeManifestWrite, "dependency %s@%q not found in manifest", dep, from)
	}
	out := re.ReplaceAll(raw, []byte(fmt.Sprintf(`${1}"%s"`, to)))
	return out, nil
}
