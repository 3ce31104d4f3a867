// Package workspace models a monorepo workspace: its packages, their
// manifests, and the dependency edges between them.
//
// A [Workspace] is built once by [Discover] and is immutable for the
// duration of a planning run. Manifest bytes are retained verbatim so
// that the applier can rewrite versions and specifiers with minimal
// diffs instead of re-serializing the whole document.
package workspace

import (
	"strings"

	"github.com/matzehuels/cascade/pkg/semver"
)

// ExternalSentinel is the target name used for dependency edges whose
// target does not resolve to a workspace package. Such edges are
// retained for upgrade detection but never participate in propagation.
const ExternalSentinel = "__external__"

// PackageKind categorizes a workspace package.
type PackageKind string

// Package kinds. Library is the default; Application marks packages
// with executables; Internal marks packages never published; Private
// mirrors the manifest's "private" flag.
const (
	KindLibrary     PackageKind = "library"
	KindApplication PackageKind = "application"
	KindInternal    PackageKind = "internal"
	KindPrivate     PackageKind = "private"
)

// Protocol identifies how a dependency specifier addresses its target.
type Protocol string

// Dependency protocols. Only VersionRange and Workspace specifiers are
// rewritten by the planner; the rest pass through untouched.
const (
	ProtocolVersionRange Protocol = "version-range"
	ProtocolWorkspace    Protocol = "workspace"
	ProtocolFile         Protocol = "file"
	ProtocolLink         Protocol = "link"
	ProtocolPortal       Protocol = "portal"
	ProtocolGit          Protocol = "git"
)

// DepKind identifies the manifest section a dependency came from.
type DepKind string

// Dependency kinds.
const (
	DepRuntime  DepKind = "runtime"
	DepDev      DepKind = "dev"
	DepPeer     DepKind = "peer"
	DepOptional DepKind = "optional"
)

// Dependency is a directed edge From → To.
// To is either a workspace package name or [ExternalSentinel].
type Dependency struct {
	From      string
	To        string
	Target    string // declared dependency name, even when To is external
	Specifier string
	Protocol  Protocol
	Kind      DepKind
}

// IsWorkspaceEdge reports whether the edge targets a workspace package
// and therefore participates in propagation.
func (d Dependency) IsWorkspaceEdge() bool { return d.To != ExternalSentinel }

// Package is a workspace member discovered from a manifest.
type Package struct {
	Name         string
	Version      semver.Version
	Dir          string // canonical directory, absolute
	ManifestPath string
	Manifest     []byte // verbatim manifest bytes
	Kind         PackageKind
	Dependencies []Dependency
}

// ParseProtocol classifies a raw specifier string.
func ParseProtocol(spec string) Protocol {
	switch {
	case strings.HasPrefix(spec, "workspace:"):
		return ProtocolWorkspace
	case strings.HasPrefix(spec, "file:"):
		return ProtocolFile
	case strings.HasPrefix(spec, "link:"):
		return ProtocolLink
	case strings.HasPrefix(spec, "portal:"):
		return ProtocolPortal
	case strings.HasPrefix(spec, "git+"),
		strings.HasPrefix(spec, "git://"),
		strings.HasPrefix(spec, "github:"),
		strings.HasSuffix(spec, ".git"):
		return ProtocolGit
	default:
		return ProtocolVersionRange
	}
}
