package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/semver"
)

// newAddCmd creates the add command, which records a changeset.
func newAddCmd(rootDir *string) *cobra.Command {
	var (
		bumps   []string
		summary string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a changeset for pending package bumps",
		Long: `Record a changeset describing which packages need a version bump and why.

Each --package flag names a workspace package and its bump, separated
by an equals sign. The changeset id is derived from the content, so
re-adding the same change is idempotent.

Examples:
  cascade add -p pkg-a=minor -m "Added streaming support"
  cascade add -p pkg-a=major -p pkg-b=patch -m "Reworked the transport"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, *rootDir)
			if err != nil {
				return err
			}

			cs := &changeset.Changeset{Summary: summary, Origin: changeset.OriginAuthored}
			for _, raw := range bumps {
				name, bumpName, ok := strings.Cut(raw, "=")
				if !ok {
					return fmt.Errorf("invalid --package %q, want name=bump", raw)
				}
				bump, err := semver.ParseBump(bumpName)
				if err != nil {
					return err
				}
				if _, ok := rt.ws.Get(name); !ok {
					return fmt.Errorf("package %q is not in the workspace", name)
				}
				cs.Packages = append(cs.Packages, changeset.PackageBump{Name: name, Bump: bump})
			}

			id, err := rt.store.Write(ctx, cs)
			if err != nil {
				return err
			}
			printSuccess("recorded changeset %s", styleValue.Render(id))
			for _, pb := range cs.Packages {
				printDetail("%s %s %s", pb.Name, iconArrow, pb.Bump)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&bumps, "package", "p", nil, "package bump as name=bump (repeatable)")
	cmd.Flags().StringVarP(&summary, "message", "m", "", "changeset summary")
	_ = cmd.MarkFlagRequired("package")

	return cmd
}
