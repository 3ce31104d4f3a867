package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cascade/pkg/buildinfo"
)

// Execute runs the cascade CLI with the given context and returns the
// first command error. Callers map the error to an exit code with
// [ExitCode].
//
// Logging goes to stderr at info level, or debug with --verbose, and is
// attached to the command context for all subcommands.
func Execute(ctx context.Context) error {
	var (
		verbose bool
		rootDir string
	)

	root := &cobra.Command{
		Use:          "cascade",
		Short:        "Cascade plans and applies version bumps across a monorepo",
		Long:         `Cascade reads changesets, propagates version bumps through the workspace dependency graph, and rewrites manifests deterministically.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&rootDir, "root", "C", "", "workspace root (default: working directory)")

	root.AddCommand(newAddCmd(&rootDir))
	root.AddCommand(newStatusCmd(&rootDir))
	root.AddCommand(newPlanCmd(&rootDir))
	root.AddCommand(newApplyCmd(&rootDir))
	root.AddCommand(newValidateCmd(&rootDir))
	root.AddCommand(newGraphCmd(&rootDir))
	root.AddCommand(newUpgradeCmd(&rootDir))

	return root.ExecuteContext(ctx)
}
