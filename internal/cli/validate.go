package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/depgraph"
	"github.com/matzehuels/cascade/pkg/errors"
)

// newValidateCmd creates the validate command, which reports structural
// issues in the workspace graph.
func newValidateCmd(rootDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the workspace for structural issues",
		Long: `Check the workspace dependency graph for structural issues:
dependency cycles, workspace-protocol edges with no matching package,
and conflicting version ranges on the same target.

Unreachable packages are reported but never fail validation. Any other
finding exits with code 2.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, *rootDir)
			if err != nil {
				return err
			}

			report := depgraph.Validate(rt.ws)
			if report.Clean() {
				printSuccess("workspace is clean (%d packages)", rt.ws.Len())
				return nil
			}

			findings := 0
			for _, cycle := range report.Cycles {
				findings++
				printError("cycle: %s", strings.Join(cycle, " "+iconArrow+" "))
			}
			for _, md := range report.MissingDependencies {
				findings++
				printError("%s depends on %s (%s), which is not in the workspace", md.From, md.To, md.Specifier)
			}
			targets := make([]string, 0, len(report.VersionConflicts))
			for target := range report.VersionConflicts {
				targets = append(targets, target)
			}
			sort.Strings(targets)
			for _, target := range targets {
				findings++
				printError("conflicting ranges on %s: %s", target, strings.Join(report.VersionConflicts[target], ", "))
			}
			for _, name := range report.Unreachable {
				printWarning("%s has no workspace dependencies or dependents", name)
			}

			if findings == 0 {
				return nil
			}
			return errors.New(errors.ErrCodeGraphValidation,
				"workspace validation found %s", plural(findings, "issue"))
		},
	}
	return cmd
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
