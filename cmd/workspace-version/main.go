// Command workspace-version prints the current version of workspace
// packages, one "name version" pair per line, or a single version when
// a package name is given. It is a thin front-end over discovery; use
// the cascade binary for planning.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/pm"
	"github.com/matzehuels/cascade/pkg/workspace"
)

func main() {
	root := flag.String("root", ".", "workspace root")
	flag.Parse()

	if err := run(context.Background(), *root, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, root, name string) error {
	manager, err := pm.Detect(root)
	if err != nil {
		return err
	}
	ws, err := workspace.Discover(ctx, fsio.NewOS(), root, manager)
	if err != nil {
		return err
	}

	if name != "" {
		pkg, ok := ws.Get(name)
		if !ok {
			return fmt.Errorf("package %q is not in the workspace", name)
		}
		fmt.Println(pkg.Version)
		return nil
	}
	for _, pkg := range ws.Packages() {
		fmt.Printf("%s %s\n", pkg.Name, pkg.Version)
	}
	return nil
}
