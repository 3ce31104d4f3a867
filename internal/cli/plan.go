package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/plan"
)

// planFlags are the strategy overrides shared by plan and apply.
type planFlags struct {
	since      string
	snapshot   string
	prerelease string
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.since, "since", "", "also classify git changes since this revision")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "plan snapshot versions on this suffix")
	cmd.Flags().StringVar(&f.prerelease, "prerelease", "", "plan prerelease versions on this channel")
}

// newPlanCmd creates the plan command, which computes and prints the
// version plan without touching any file.
func newPlanCmd(rootDir *string) *cobra.Command {
	var (
		flags  planFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the version plan from pending changesets",
		Long: `Compute the deterministic version plan from the pending changesets.

Nothing is written; the plan describes what apply would do. Identical
workspaces and changesets always produce identical plans, so --json
output is safe to diff in CI.`,
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
			if asJSON {
				return p.Encode(os.Stdout)
			}
			printPlan(p)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")

	return cmd
}

// computePlan merges authored and derived changesets and runs the
// planner with the configured strategy plus any channel overrides.
func computePlan(ctx context.Context, rt *runtime, flags planFlags) (*plan.Plan, error) {
	changesets, err := rt.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if flags.since != "" {
		derived, err := deriveChangesets(ctx, rt, flags.since)
		if err != nil {
			return nil, err
		}
		changesets = changeset.MergeWithDerived(changesets, derived)
	}

	strategy := rt.cfg.Strategy
	if flags.snapshot != "" {
		strategy.SnapshotSuffix = flags.snapshot
	}
	if flags.prerelease != "" {
		strategy.PrereleaseChannel = flags.prerelease
	}

	planner, err := plan.NewPlanner(rt.ws, strategy)
	if err != nil {
		return nil, err
	}
	return planner.Plan(ctx, changesets)
}

func printPlan(p *plan.Plan) {
	if p.Empty() {
		printInfo("nothing to release")
		return
	}
	fmt.Println(styleTitle.Render(fmt.Sprintf("Plan (%d packages)", len(p.Entries))))
	for _, e := range p.Entries {
		bump := styleBump(e.Bump.String()).Render(e.Bump.String())
		fmt.Printf("  %s %s %s %s %s %s\n",
			styleValue.Render(e.Package),
			styleDim.Render(e.From.String()), iconArrow, styleValue.Render(e.To.String()),
			bump, styleDim.Render("("+string(e.Reason)+")"))
		for _, u := range e.Updates {
			printDetail("%s: %s %s %s", u.Target, u.From, iconArrow, u.To)
		}
	}
	for _, note := range p.Notes {
		printWarning("%s", note)
	}
}
