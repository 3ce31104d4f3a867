// Package pm implements the package-manager collaborator: detection of
// which JavaScript package manager owns a workspace, and lockfile
// refresh after an apply.
//
// Detection is lockfile-based, the same heuristic the managers
// themselves use. Refresh shells out to the detected manager with a
// timeout; the engine treats refresh failure as a warning, never a
// fatal error.
package pm

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matzehuels/cascade/pkg/errors"
)

// Kind identifies a supported package manager.
type Kind string

// Supported package managers, in detection precedence order.
const (
	Npm  Kind = "npm"
	Pnpm Kind = "pnpm"
	Yarn Kind = "yarn"
	Bun  Kind = "bun"
)

// ErrNotFound is wrapped into the MANAGER_NOT_FOUND error when no
// lockfile is present under the workspace root.
var ErrNotFound = errors.New(errors.ErrCodeManagerNotFound, "no package manager lockfile found")

// lockfiles maps each manager to the lockfile that identifies it.
// Detection order matters: pnpm workspaces often carry a stray
// package-lock.json from tooling, so pnpm-lock.yaml is checked first.
var lockfiles = []struct {
	name string
	kind Kind
}{
	{"pnpm-lock.yaml", Pnpm},
	{"yarn.lock", Yarn},
	{"bun.lockb", Bun},
	{"bun.lock", Bun},
	{"package-lock.json", Npm},
}

// Detect returns the package manager owning the workspace at root.
// Returns ErrNotFound when no known lockfile exists.
func Detect(root string) (Kind, error) {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.name)); err == nil {
			return lf.kind, nil
		}
	}
	return "", ErrNotFound.WithSubject(root)
}

// Lockfile returns the lockfile basename for the manager.
func (k Kind) Lockfile() string {
	for _, lf := range lockfiles {
		if lf.kind == k {
			return lf.name
		}
	}
	return ""
}

// refreshArgs returns the command that regenerates the lockfile without
// touching node_modules more than necessary.
func (k Kind) refreshArgs() []string {
	switch k {
	case Pnpm:
		return []string{"pnpm", "install", "--lockfile-only"}
	case Yarn:
		return []string{"yarn", "install", "--mode=update-lockfile"}
	case Bun:
		return []string{"bun", "install", "--lockfile-only"}
	default:
		return []string{"npm", "install", "--package-lock-only"}
	}
}

// DefaultRefreshTimeout bounds lockfile regeneration. Timeouts are
// applied only at collaborator boundaries; the engine itself imposes none.
const DefaultRefreshTimeout = 2 * time.Minute

// RefreshLockfile regenerates the manager's lockfile under root.
// Failures come back as LOCKFILE_REFRESH_FAILED; callers are expected
// to log them and carry on with the lockfile marked stale.
func RefreshLockfile(ctx context.Context, root string, kind Kind) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultRefreshTimeout)
	defer cancel()

	args := kind.refreshArgs()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = root

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := ""
		if stderr.Len() > 0 {
			detail = ": " + stderr.String()
		}
		return errors.Wrap(errors.ErrCodeLockfileRefresh, err,
			"refresh %s%s", kind.Lockfile(), detail).WithSubject(root)
	}
	return nil
}
