package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/depgraph"
)

// newGraphCmd creates the graph command, which renders the workspace
// dependency graph.
func newGraphCmd(rootDir *string) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the workspace dependency graph",
		Long: `Render the internal dependency graph as Graphviz DOT or SVG.

Only workspace edges are drawn; external dependencies are omitted.
Dev edges are dashed, peer edges dotted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, *rootDir)
			if err != nil {
				return err
			}

			dot := depgraph.DOT(rt.ws)
			var out []byte
			switch format {
			case "dot":
				out = []byte(dot)
			case "svg":
				out, err = renderSVG(ctx, dot)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want dot or svg)", format)
			}

			if output == "" {
				_, err = os.Stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}
			printSuccess("wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

// renderSVG renders DOT to SVG using Graphviz.
func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
