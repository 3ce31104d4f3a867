package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/gitx"
	"github.com/matzehuels/cascade/pkg/plan"
)

// newApplyCmd creates the apply command, which executes the plan
// against the working tree.
func newApplyCmd(rootDir *string) *cobra.Command {
	var (
		flags           planFlags
		refreshLockfile bool
		tag             bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the version plan to the workspace",
		Long: `Compute the plan from pending changesets and write it to disk:
manifest versions, dependency specifiers, and changelogs. Consumed
changesets are removed from the store.

Each entry is verified against the manifest currently on disk before
writing; a plan computed over stale state refuses to apply. With --tag,
a git tag "package@version" is created per applied entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, *rootDir)
			if err != nil {
				return err
			}
			p, err := computePlan(ctx, rt, flags)
			if err != nil {
				return err
			}
			if p.Empty() {
				printInfo("nothing to apply")
				return nil
			}

			applier := plan.NewApplier(rt.fs, rt.ws, rt.store, rt.logger)
			res, err := applier.Apply(ctx, p, plan.ApplyOptions{RefreshLockfile: refreshLockfile})
			for _, e := range p.Entries {
				state := res.States[e.Package]
				if state == plan.StateDone {
					printSuccess("%s %s %s %s", e.Package, e.From, iconArrow, styleValue.Render(e.To.String()))
				} else {
					printError("%s stopped at %s", e.Package, state)
				}
			}
			if err != nil {
				return err
			}
			if res.LockfileStale {
				printWarning("lockfile refresh failed; %s is stale", rt.manager.Lockfile())
			}

			if tag {
				tagApplied(rt, p)
			}
			printSuccess("applied %d of %d entries", res.Applied, len(p.Entries))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&refreshLockfile, "refresh-lockfile", false, "run the package manager after applying")
	cmd.Flags().BoolVar(&tag, "tag", false, "create a git tag per applied package")

	return cmd
}

// tagApplied creates per-package release tags at HEAD. Tag failures are
// reported but never fail the apply; the versions are already on disk.
func tagApplied(rt *runtime, p *plan.Plan) {
	repo, err := gitx.Open(rt.root)
	if err != nil {
		printWarning("tagging skipped: %v", err)
		return
	}
	head, err := repo.Head()
	if err != nil {
		printWarning("tagging skipped: %v", err)
		return
	}
	for _, e := range p.Entries {
		if e.To.Equal(e.From) {
			continue
		}
		name := fmt.Sprintf("%s@%s", e.Package, e.To)
		if err := repo.Tag(name, head); err != nil {
			printWarning("tag %s: %v", name, err)
			continue
		}
		printDetail("tagged %s", name)
	}
}
