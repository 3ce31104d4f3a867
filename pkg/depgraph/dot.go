package depgraph

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/cascade/pkg/workspace"
)

// DOT renders the workspace's internal edges as Graphviz DOT. External
// dependencies are omitted; dev edges are dashed, peer edges dotted.
func DOT(ws *workspace.Workspace) string {
	var buf bytes.Buffer
	buf.WriteString("digraph workspace {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, pkg := range ws.Packages() {
		label := fmt.Sprintf("%s\n%s", pkg.Name, pkg.Version)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", pkg.Name, label)
	}

	buf.WriteString("\n")
	for _, pkg := range ws.Packages() {
		for _, dep := range pkg.Dependencies {
			if !dep.IsWorkspaceEdge() {
				continue
			}
			attrs := ""
			switch dep.Kind {
			case workspace.DepDev:
				attrs = " [style=dashed]"
			case workspace.DepPeer:
				attrs = " [style=dotted]"
			}
			fmt.Fprintf(&buf, "  %q -> %q%s;\n", dep.From, dep.To, attrs)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}
