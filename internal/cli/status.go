package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/classify"
	"github.com/matzehuels/cascade/pkg/depgraph"
	"github.com/matzehuels/cascade/pkg/gitx"
	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// newStatusCmd creates the status command, which lists pending
// changesets and, given --since, suggests derived ones from git.
func newStatusCmd(rootDir *string) *cobra.Command {
	var (
		since string
		write bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending changesets and suggested bumps",
		Long: `Show pending changesets in the store.

With --since, the changed files between that git revision and the
working tree are classified per package and reported as a suggested
derived changeset. --write persists the suggestion to the store so the
next plan picks it up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := loadRuntime(ctx, *rootDir)
			if err != nil {
				return err
			}

			authored, err := rt.store.List(ctx)
			if err != nil {
				return err
			}
			printStatusList(authored)
			printValidationSummary(rt)

			if since == "" {
				return nil
			}
			derived, err := deriveChangesets(ctx, rt, since)
			if err != nil {
				return err
			}
			if len(derived) == 0 {
				printInfo("no classifiable changes since %s", since)
				return nil
			}

			fmt.Println()
			fmt.Println(styleTitle.Render("Suggested (derived)"))
			for _, cs := range derived {
				for _, pb := range cs.Packages {
					printDetail("%s %s %s", pb.Name, iconArrow, styleBump(pb.Bump.String()).Render(pb.Bump.String()))
				}
			}
			if !write {
				printInfo("run with --write to record the suggestion")
				return nil
			}
			for _, cs := range derived {
				id, err := rt.store.Write(ctx, cs)
				if err != nil {
					return err
				}
				printSuccess("recorded derived changeset %s", styleValue.Render(id))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "git revision to classify changes against")
	cmd.Flags().BoolVar(&write, "write", false, "persist the derived changeset")

	return cmd
}

func printStatusList(changesets []*changeset.Changeset) {
	if len(changesets) == 0 {
		printInfo("no pending changesets")
		return
	}
	fmt.Println(styleTitle.Render(fmt.Sprintf("Pending changesets (%d)", len(changesets))))
	for _, cs := range changesets {
		summary := cs.Summary
		if i := strings.IndexByte(summary, '\n'); i >= 0 {
			summary = summary[:i]
		}
		fmt.Printf("  %s %s\n", styleValue.Render(cs.ID), styleDim.Render(summary))
		for _, pb := range cs.Packages {
			printDetail("%s %s %s", pb.Name, iconArrow, pb.Bump)
		}
	}
}

// printValidationSummary condenses the graph validation report to one
// line; run validate for details.
func printValidationSummary(rt *runtime) {
	report := depgraph.Validate(rt.ws)
	issues := len(report.Cycles) + len(report.MissingDependencies) + len(report.VersionConflicts)
	if issues == 0 {
		printDetail("%d packages, graph clean", rt.ws.Len())
		return
	}
	printWarning("%s in the workspace graph; run `cascade validate`", plural(issues, "issue"))
}

// deriveChangesets classifies the files changed since the revision into
// at most one derived changeset covering every touched package.
func deriveChangesets(ctx context.Context, rt *runtime, since string) ([]*changeset.Changeset, error) {
	repo, err := gitx.Open(rt.root)
	if err != nil {
		return nil, err
	}
	files, err := repo.ChangedFiles(ctx, since)
	if err != nil {
		return nil, err
	}

	byPkg := map[string][]classify.FileChange{}
	for _, f := range files {
		pkg, rel, ok := packageFor(rt.ws, filepath.Join(rt.root, f.Path))
		if !ok {
			continue
		}
		byPkg[pkg.Name] = append(byPkg[pkg.Name], classify.FileChange{Path: rel})
	}
	names := make([]string, 0, len(byPkg))
	for name := range byPkg {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := rt.cfg.Rules(rt.logger)
	var bumps []changeset.PackageBump
	for _, name := range names {
		res := rules.Classify(ctx, name, byPkg[name])
		if res.Bump == semver.BumpNone {
			continue
		}
		bumps = append(bumps, changeset.PackageBump{Name: name, Bump: res.Bump})
	}
	if len(bumps) == 0 {
		return nil, nil
	}
	return []*changeset.Changeset{{
		Packages: bumps,
		Summary:  fmt.Sprintf("Derived from changes since %s.", since),
		Origin:   changeset.OriginDerived,
	}}, nil
}

// packageFor finds the workspace package owning the absolute path,
// preferring the deepest matching directory, and returns the path
// relative to that package.
func packageFor(ws *workspace.Workspace, abs string) (*workspace.Package, string, bool) {
	var best *workspace.Package
	for _, pkg := range ws.Packages() {
		prefix := pkg.Dir + string(filepath.Separator)
		if !strings.HasPrefix(abs, prefix) {
			continue
		}
		if best == nil || len(pkg.Dir) > len(best.Dir) {
			best = pkg
		}
	}
	if best == nil {
		return nil, "", false
	}
	rel, err := filepath.Rel(best.Dir, abs)
	if err != nil {
		return nil, "", false
	}
	return best, filepath.ToSlash(rel), true
}
