package plan

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cascade/pkg/changeset"
	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/observability"
	"github.com/matzehuels/cascade/pkg/pm"
	"github.com/matzehuels/cascade/pkg/semver"
	"github.com/matzehuels/cascade/pkg/workspace"
)

// EntryState tracks an entry through the apply state machine.
type EntryState string

const (
	StatePending          EntryState = "pending"
	StateWriting          EntryState = "writing"
	StateWritten          EntryState = "written"
	StateChangelogUpdated EntryState = "changelog-updated"
	StateDone             EntryState = "done"
)

// ApplyOptions tunes a single apply run.
type ApplyOptions struct {
	// RefreshLockfile invokes the package manager after a successful
	// apply. Failure is non-fatal; the result marks the lockfile stale.
	RefreshLockfile bool
}

// Result reports what an apply run accomplished. It is returned even
// when the run fails partway, so callers can tell applied entries from
// pending ones.
type Result struct {
	// States holds the final state of every plan entry.
	States map[string]EntryState
	// Applied counts entries that reached Done.
	Applied int
	// LockfileStale is set when the lockfile refresh was requested and
	// failed; the manifests on disk are newer than the lockfile.
	LockfileStale bool
}

// Applier executes plans against the filesystem. Writes are strictly
// sequential in plan order; each manifest write is atomic, so an
// interrupted apply never leaves a partial manifest. Re-planning after
// an interruption yields a plan over the new on-disk state.
type Applier struct {
	fs      fsio.FS
	ws      *workspace.Workspace
	store   *changeset.Store
	manager pm.Kind
	logger  *log.Logger
}

// NewApplier returns an applier over the workspace. A nil logger falls
// back to log.Default().
func NewApplier(fs fsio.FS, ws *workspace.Workspace, store *changeset.Store, logger *log.Logger) *Applier {
	if logger == nil {
		logger = log.Default()
	}
	return &Applier{fs: fs, ws: ws, store: store, manager: ws.Manager, logger: logger}
}

var manifestVersionRe = regexp.MustCompile(`"version"\s*:\s*"([^"]+)"`)

// Apply executes the plan entry by entry. It takes the changeset store
// lock for the duration of the run, verifies each entry against the
// manifest currently on disk, and deletes consumed changesets at the
// end. On error the returned Result still describes how far the run
// got.
func (a *Applier) Apply(ctx context.Context, p *Plan, opts ApplyOptions) (*Result, error) {
	start := time.Now()
	res := &Result{States: make(map[string]EntryState, len(p.Entries))}
	for _, e := range p.Entries {
		res.States[e.Package] = StatePending
	}

	if err := ctx.Err(); err != nil {
		return res, errors.Wrap(errors.ErrCodeCancelled, err, "apply cancelled")
	}
	if err := a.store.Lock(ctx); err != nil {
		return res, err
	}
	defer a.store.Unlock(context.WithoutCancel(ctx))

	err := a.applyEntries(ctx, p, res)
	if err == nil {
		err = a.consumeChangesets(ctx, p)
	}
	if err == nil && opts.RefreshLockfile {
		if refreshErr := pm.RefreshLockfile(ctx, a.ws.Root, a.manager); refreshErr != nil {
			a.logger.Warn("lockfile refresh failed; lockfile is stale", "err", refreshErr)
			res.LockfileStale = true
		}
	}

	observability.Engine().OnApplyComplete(ctx, res.Applied, time.Since(start), err)
	return res, err
}

func (a *Applier) applyEntries(ctx context.Context, p *Plan, res *Result) error {
	for i := range p.Entries {
		e := &p.Entries[i]
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCancelled, err, "apply cancelled before %s", e.Package)
		}
		observability.Engine().OnApplyEntry(ctx, e.Package, e.From.String(), e.To.String())

		if err := a.applyOne(ctx, e, res); err != nil {
			return err
		}
		res.States[e.Package] = StateDone
		res.Applied++
	}
	return nil
}

func (a *Applier) applyOne(ctx context.Context, e *Entry, res *Result) error {
	pkg, ok := a.ws.Get(e.Package)
	if !ok {
		return errors.New(errors.ErrCodePlanConflict, "planned package %s is not in the workspace", e.Package)
	}

	raw, err := a.fs.Read(ctx, pkg.ManifestPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeManifestWrite, err, "read manifest").WithSubject(pkg.ManifestPath)
	}
	if err := a.checkDiskVersion(raw, e); err != nil {
		return err
	}

	res.States[e.Package] = StateWriting
	if e.To.String() != e.From.String() {
		raw, err = workspace.RewriteVersion(raw, e.From.String(), e.To.String())
		if err != nil {
			return err
		}
	}
	for _, u := range e.Updates {
		raw, err = workspace.RewriteSpecifier(raw, u.Target, u.From, u.To)
		if err != nil {
			return err
		}
	}
	if err := a.fs.WriteAtomic(ctx, pkg.ManifestPath, raw); err != nil {
		return errors.Wrap(errors.ErrCodeManifestWrite, err, "write manifest").WithSubject(pkg.ManifestPath)
	}
	res.States[e.Package] = StateWritten

	// Manifest is on disk; a changelog failure is reported, not rolled
	// back, and the next invocation treats the entry as applied.
	if err := a.appendChangelog(ctx, pkg.Dir, e); err != nil {
		a.logger.Warn("changelog update failed", "package", e.Package, "err", err)
		return nil
	}
	res.States[e.Package] = StateChangelogUpdated
	return nil
}

// checkDiskVersion compares the version on disk against the plan. A
// mismatch means the plan was computed over stale state: when the plan
// would move the package backwards it is a downgrade, otherwise a
// generic conflict that re-planning resolves.
func (a *Applier) checkDiskVersion(raw []byte, e *Entry) error {
	m := manifestVersionRe.FindSubmatch(raw)
	if m == nil {
		return errors.New(errors.ErrCodeManifestWrite, "no version field in manifest").WithSubject(e.Package)
	}
	current, err := semver.Parse(string(m[1]))
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse, err, "manifest version").WithSubject(e.Package)
	}
	if current.Equal(e.From) {
		return nil
	}
	if e.To.Compare(current) < 0 {
		return errors.New(errors.ErrCodeDowngradeRefused,
			"plan moves %s from %s to %s but disk has %s", e.Package, e.From, e.To, current)
	}
	return errors.New(errors.ErrCodePlanConflict,
		"plan expects %s at %s but disk has %s; re-plan required", e.Package, e.From, current)
}

func (a *Applier) consumeChangesets(ctx context.Context, p *Plan) error {
	seen := map[string]bool{}
	for _, e := range p.Entries {
		for _, id := range e.Changesets {
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := a.store.Delete(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Applier) appendChangelog(ctx context.Context, dir string, e *Entry) error {
	path := filepath.Join(dir, "CHANGELOG.md")
	existing, err := a.fs.Read(ctx, path)
	if err != nil && !stderrors.Is(err, fsio.ErrNotExist) {
		return err
	}
	return a.fs.WriteAtomic(ctx, path, renderChangelog(existing, e))
}
