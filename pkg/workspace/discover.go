package workspace

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/observability"
	"github.com/matzehuels/cascade/pkg/pm"
)

// DiscoverConcurrency bounds the parallel fan-out for manifest parsing.
// Discovery is read-heavy; everything after it is single-threaded to
// keep planning deterministic.
const DiscoverConcurrency = 8

// directories never descended into while expanding workspace globs.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".cascade":     true,
}

// Discover builds the Workspace rooted at root for the given package
// manager. The manager decides where workspace globs live: pnpm reads
// pnpm-workspace.yaml, everything else reads the root manifest's
// "workspaces" field.
//
// Discovery is strict: a single unparseable manifest aborts with a
// PARSE error naming the file, and duplicate package names abort with
// DUPLICATE_PACKAGE naming both paths.
func Discover(ctx context.Context, fs fsio.FS, root string, manager pm.Kind) (*Workspace, error) {
	obs := observability.Engine()
	obs.OnDiscoverStart(ctx, root)

	rootManifest := filepath.Join(root, "package.json")
	data, err := fs.Read(ctx, rootManifest)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDiscovery, err, "read workspace root manifest").WithSubject(rootManifest)
	}
	rm, err := parseManifest(rootManifest, data)
	if err != nil {
		return nil, err
	}

	globs, err := workspaceGlobs(ctx, fs, root, manager, rm)
	if err != nil {
		return nil, err
	}

	dirs, err := expandGlobs(ctx, fs, root, globs)
	if err != nil {
		return nil, err
	}

	pkgs, err := parseAll(ctx, fs, dirs)
	if err != nil {
		return nil, err
	}

	// The root manifest joins the workspace when it is versioned itself.
	if rm.Name != "" && rm.Version != "" {
		rootPkg, err := buildPackage(root, rootManifest, data, rm)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, rootPkg)
	}

	ws, err := build(root, manager, pkgs)
	if err != nil {
		return nil, err
	}
	obs.OnDiscoverComplete(ctx, root, len(ws.names), nil)
	return ws, nil
}

// workspaceGlobs returns the configured package globs for the manager.
func workspaceGlobs(ctx context.Context, fs fsio.FS, root string, manager pm.Kind, rm *manifestFile) ([]string, error) {
	if manager == pm.Pnpm {
		path := filepath.Join(root, "pnpm-workspace.yaml")
		data, err := fs.Read(ctx, path)
		if err == nil {
			var wsFile struct {
				Packages []string `yaml:"packages"`
			}
			if err := yaml.Unmarshal(data, &wsFile); err != nil {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "parse pnpm workspace file").WithSubject(path)
			}
			return wsFile.Packages, nil
		}
	}
	return rm.workspaceGlobs(), nil
}

// expandGlobs walks the workspace tree and returns, sorted, every
// directory whose root-relative path matches a glob and which contains
// a package.json. Negated globs ("!dir") exclude matches.
func expandGlobs(ctx context.Context, fs fsio.FS, root string, globs []string) ([]string, error) {
	var include, exclude []string
	for _, g := range globs {
		if strings.HasPrefix(g, "!") {
			exclude = append(exclude, strings.TrimPrefix(g, "!"))
		} else {
			include = append(include, g)
		}
	}
	if len(include) == 0 {
		return nil, nil
	}

	var dirs []string
	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := fs.List(ctx, dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			base := filepath.Base(entry)
			if skipDirs[base] || strings.HasPrefix(base, ".") {
				continue
			}
			hasManifest, err := fs.Exists(ctx, filepath.Join(entry, "package.json"))
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, entry)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if hasManifest && matchAny(include, rel) && !matchAny(exclude, rel) {
				dirs = append(dirs, entry)
			}
			// Descend regardless: "packages/**" can match below this level.
			// List tolerates plain files, so no directory check is needed.
			if err := walk(entry); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDiscovery, err, "expand workspace globs").WithSubject(root)
	}

	sort.Strings(dirs)
	return dirs, nil
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// parseAll reads and parses every package manifest with bounded fan-out.
// Results come back in deterministic order regardless of scheduling.
func parseAll(ctx context.Context, fs fsio.FS, dirs []string) ([]*Package, error) {
	pkgs := make([]*Package, len(dirs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DiscoverConcurrency)
	for i, dir := range dirs {
		g.Go(func() error {
			path := filepath.Join(dir, "package.json")
			data, err := fs.Read(gctx, path)
			if err != nil {
				return errors.Wrap(errors.ErrCodeDiscovery, err, "read manifest").WithSubject(path)
			}
			m, err := parseManifest(path, data)
			if err != nil {
				return err
			}
			pkg, err := buildPackage(dir, path, data, m)
			if err != nil {
				return err
			}
			mu.Lock()
			pkgs[i] = pkg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pkgs, nil
}
