// Package cli implements the cascade command tree.
//
// Commands load the workspace lazily: the root command only wires
// logging, and each subcommand builds the [runtime] it needs. Exit
// codes are part of the CLI contract and derived from error codes by
// [ExitCode].
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/config"
	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/pm"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// Exit codes returned by the cascade binary.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitConflict   = 3
	ExitPartial    = 4
	ExitCancelled  = 5
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeParse, errors.ErrCodeDiscovery, errors.ErrCodeDuplicate,
		errors.ErrCodeManagerNotFound, errors.ErrCodeGraphValidation,
		errors.ErrCodeMissingTarget:
		return ExitValidation
	case errors.ErrCodePlanConflict, errors.ErrCodeDowngradeRefused,
		errors.ErrCodeRangeRefused:
		return ExitConflict
	case errors.ErrCodeManifestWrite, errors.ErrCodeLockfileRefresh,
		errors.ErrCodeStoreLocked:
		return ExitPartial
	case errors.ErrCodeCancelled:
		return ExitCancelled
	default:
		return ExitError
	}
}

// runtime bundles everything a subcommand needs: the discovered
// workspace, its configuration, and the changeset store.
type runtime struct {
	fs      fsio.FS
	root    string
	manager pm.Kind
	cfg     *config.File
	ws      *workspace.Workspace
	store   *changeset.Store
	logger  *log.Logger
}

// loadRuntime discovers the workspace rooted at rootFlag (or the
// working directory) and loads cascade.toml next to it.
func loadRuntime(ctx context.Context, rootFlag string) (*runtime, error) {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDiscovery, err, "resolve working directory")
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDiscovery, err, "resolve workspace root")
	}

	fs := fsio.NewOS()
	manager, err := pm.Detect(root)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx, fs, root)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Discover(ctx, fs, root, manager)
	if err != nil {
		return nil, err
	}

	return &runtime{
		fs:      fs,
		root:    root,
		manager: manager,
		cfg:     cfg,
		ws:      ws,
		store:   changeset.NewStore(fs, cfg.ChangesetDir(root)),
		logger:  loggerFromContext(ctx),
	}, nil
}
