// Package changeset persists and loads changeset records.
//
// A changeset declares that certain packages require a versioning
// action, together with a human-readable summary. Each record is one
// file with the .changeset extension under a well-known directory
// (.cascade/changesets by default):
//
//	---
//	"@acme/core": minor
//	"@acme/utils": patch
//	---
//
//	Added streaming support to the core client.
//
// Header lines map package names to bump kinds; the body after the
// second divider is the free-form summary. Line endings are normalized
// to LF on write. File names combine a human token with a short hash
// of the contents, so identical content always lands on the same name.
package changeset

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"lukechampine.com/blake3"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/semver"
)

// Origin records who produced a changeset.
type Origin string

const (
	// OriginAuthored marks changesets written by a person or hook.
	OriginAuthored Origin = "authored"
	// OriginDerived marks changesets produced by the change classifier.
	OriginDerived Origin = "derived"
)

// PackageBump is one package's requested bump inside a changeset.
type PackageBump struct {
	Name string
	Bump semver.Bump
}

// Changeset is a single versioning request covering one or more
// packages. The zero ID means "not yet persisted": Write assigns a
// content-derived ID on first write.
type Changeset struct {
	ID       string
	Packages []PackageBump
	Summary  string
	Origin   Origin
}

// Bumps returns the requested bumps keyed by package name.
func (c *Changeset) Bumps() map[string]semver.Bump {
	out := make(map[string]semver.Bump, len(c.Packages))
	for _, pb := range c.Packages {
		out[pb.Name] = pb.Bump
	}
	return out
}

// Extension is the file extension of persisted changesets.
const Extension = ".changeset"

const divider = "---"

// Marshal renders the changeset file body. Packages are sorted by name
// and line endings are LF; marshaling the same changeset twice yields
// identical bytes.
func Marshal(c *Changeset) []byte {
	pkgs := append([]PackageBump(nil), c.Packages...)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	var b strings.Builder
	b.WriteString(divider + "\n")
	if c.Origin == OriginDerived {
		b.WriteString("# origin: derived\n")
	}
	for _, pb := range pkgs {
		fmt.Fprintf(&b, "%q: %s\n", pb.Name, pb.Bump)
	}
	b.WriteString(divider + "\n")

	summary := normalizeEOL(strings.TrimSpace(c.Summary))
	if summary != "" {
		b.WriteString("\n" + summary + "\n")
	}
	return []byte(b.String())
}

// Unmarshal parses a changeset file body. The id comes from the file
// name, not the content, so it is supplied by the caller.
func Unmarshal(id string, data []byte) (*Changeset, error) {
	lines := strings.Split(normalizeEOL(string(data)), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != divider {
		return nil, errors.New(errors.ErrCodeParse, "changeset must start with %q", divider).WithSubject(id)
	}

	cs := &Changeset{ID: id, Origin: OriginAuthored}
	i := 1
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == divider {
			break
		}
		if line == "" {
			continue
		}
		if after, ok := strings.CutPrefix(line, "#"); ok {
			if key, val, ok := strings.Cut(after, ":"); ok && strings.TrimSpace(key) == "origin" {
				if Origin(strings.TrimSpace(val)) == OriginDerived {
					cs.Origin = OriginDerived
				}
			}
			continue
		}
		name, bumpName, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.New(errors.ErrCodeParse, "malformed header line %q", line).WithSubject(id)
		}
		name = strings.Trim(strings.TrimSpace(name), `"`)
		if err := errors.ValidateNpmPackageName(name); err != nil {
			return nil, err
		}
		bump, err := semver.ParseBump(strings.TrimSpace(bumpName))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "bump for %s", name).WithSubject(id)
		}
		cs.Packages = append(cs.Packages, PackageBump{Name: name, Bump: bump})
	}
	if i == len(lines) {
		return nil, errors.New(errors.ErrCodeParse, "changeset header never closed").WithSubject(id)
	}

	cs.Summary = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
	sort.Slice(cs.Packages, func(a, b int) bool { return cs.Packages[a].Name < cs.Packages[b].Name })
	return cs, nil
}

// deriveID builds the stable file-name stem for content: a two-word
// human token picked by the content hash, followed by eight hex digits
// of the same hash.
func deriveID(content []byte) string {
	sum := blake3.Sum256(content)
	adjective := tokenAdjectives[int(sum[0])%len(tokenAdjectives)]
	noun := tokenNouns[int(sum[1])%len(tokenNouns)]
	return fmt.Sprintf("%s-%s-%s", adjective, noun, hex.EncodeToString(sum[2:6]))
}

func normalizeEOL(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Token vocabulary for generated file names. Kept small on purpose;
// the hash suffix carries the uniqueness.
var tokenAdjectives = []string{
	"amber", "bold", "calm", "deep", "eager", "fresh", "gentle", "happy",
	"icy", "jolly", "keen", "lucky", "mellow", "noble", "odd", "proud",
	"quiet", "rapid", "solid", "tidy", "vivid", "warm", "young", "zesty",
}

var tokenNouns = []string{
	"badger", "cedar", "delta", "ember", "falcon", "grove", "harbor",
	"island", "jasper", "kestrel", "lagoon", "meadow", "nebula", "otter",
	"pebble", "quartz", "river", "summit", "thicket", "valley", "willow",
	"zephyr",
}
