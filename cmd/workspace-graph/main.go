// Command workspace-graph prints the workspace dependency graph as
// Graphviz DOT. It is a thin front-end over the discovery and graph
// packages; use the cascade binary for anything more.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/matzehuels/cascade/pkg/depgraph"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/pm"
	"github.com/matzehuels/cascade/pkg/workspace"
)

func main() {
	root := flag.String("root", ".", "workspace root")
	flag.Parse()

	if err := run(context.Background(), *root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, root string) error {
	manager, err := pm.Detect(root)
	if err != nil {
		return err
	}
	ws, err := workspace.Discover(ctx, fsio.NewOS(), root, manager)
	if err != nil {
		return err
	}
	_, err = os.Stdout.WriteString(depgraph.DOT(ws))
	return err
}
