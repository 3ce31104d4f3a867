package plan

import (
	"fmt"
	"strings"
)

const changelogHeader = "# Changelog\n"

// renderChangelog prepends a release section for the entry to an
// existing changelog, creating the file header when there is none.
// Sections are newest-first, one per applied version:
//
//	## 1.1.0
//
//	- minor: Added streaming support. (amber-river-3f9a2c1d)
//	- Updated dependency `pkg-a` to `^2.0.0`
func renderChangelog(existing []byte, e *Entry) []byte {
	var section strings.Builder
	fmt.Fprintf(&section, "## %s\n\n", e.To)

	for i, id := range e.Changesets {
		summary := firstLine(e.Summaries[i])
		if summary == "" {
			summary = "No summary provided."
		}
		fmt.Fprintf(&section, "- %s: %s (%s)\n", e.Bump, summary, id)
	}
	if len(e.Changesets) == 0 && e.Bump.String() != "none" {
		fmt.Fprintf(&section, "- %s: Version bumped for updated dependencies.\n", e.Bump)
	}
	for _, u := range e.Updates {
		fmt.Fprintf(&section, "- Updated dependency `%s` to `%s`\n", u.Target, u.To)
	}

	body := strings.ReplaceAll(string(existing), "\r\n", "\n")
	if body == "" {
		return []byte(changelogHeader + "\n" + section.String())
	}
	if rest, ok := strings.CutPrefix(body, changelogHeader); ok {
		return []byte(changelogHeader + "\n" + section.String() + "\n" + strings.TrimLeft(rest, "\n"))
	}
	// Unrecognized shape: keep the user's content below ours untouched.
	return []byte(section.String() + "\n" + body)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
