package changeset

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/cascade/pkg/errors"
	"github.com/matzehuels/cascade/pkg/fsio"
	"github.com/matzehuels/cascade/pkg/semver"
)

// DefaultDir is the changeset directory relative to the workspace root.
const DefaultDir = ".cascade/changesets"

// lockName is the advisory lock file guarding concurrent applies.
const lockName = ".lock"

// Store reads and writes changeset files in a single directory. The
// filesystem collaborator is borrowed, not owned.
type Store struct {
	fs  fsio.FS
	dir string
}

// NewStore returns a store over dir. The directory does not need to
// exist yet; it is created on first write.
func NewStore(fs fsio.FS, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Dir returns the directory the store operates on.
func (s *Store) Dir() string { return s.dir }

// List loads every changeset in the directory, sorted by id. Files
// without the .changeset extension are ignored.
func (s *Store) List(ctx context.Context) ([]*Changeset, error) {
	paths, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDiscovery, err, "list changesets in %s", s.dir)
	}

	var out []*Changeset
	for _, path := range paths {
		base := filepath.Base(path)
		if !strings.HasSuffix(base, Extension) {
			continue
		}
		data, err := s.fs.Read(ctx, path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDiscovery, err, "read changeset").WithSubject(path)
		}
		cs, err := Unmarshal(strings.TrimSuffix(base, Extension), data)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Write persists a changeset atomically. A changeset without an id gets
// a content-derived one, so writing identical content twice lands on
// the same file. The assigned id is returned.
func (s *Store) Write(ctx context.Context, cs *Changeset) (string, error) {
	if len(cs.Packages) == 0 {
		return "", errors.New(errors.ErrCodeParse, "changeset has no packages")
	}
	data := Marshal(cs)
	id := cs.ID
	if id == "" {
		id = deriveID(data)
	}
	if err := errors.ValidateChangesetID(id); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, id+Extension)
	if err := s.fs.WriteAtomic(ctx, path, data); err != nil {
		return "", errors.Wrap(errors.ErrCodeManifestWrite, err, "write changeset").WithSubject(path)
	}
	cs.ID = id
	return id, nil
}

// Delete removes the changeset with the given id. Deleting a missing
// changeset is not an error, so a restarted apply can re-delete.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateChangesetID(id); err != nil {
		return err
	}
	path := filepath.Join(s.dir, id+Extension)
	if err := s.fs.Remove(ctx, path); err != nil {
		return errors.Wrap(errors.ErrCodeManifestWrite, err, "delete changeset").WithSubject(path)
	}
	return nil
}

// Lock takes the advisory lock guarding the store. It fails with
// CHANGESET_STORE_LOCKED when another process holds it; the error names
// the lock file so an operator can remove a stale one.
func (s *Store) Lock(ctx context.Context) error {
	path := filepath.Join(s.dir, lockName)
	// The token identifies the holding run in "remove if stale" triage.
	token := fmt.Sprintf("cascade run %s at %s\n", uuid.NewString(), time.Now().UTC().Format(time.RFC3339))
	err := s.fs.WriteExclusive(ctx, path, []byte(token))
	if err == nil {
		return nil
	}
	if stderrors.Is(err, fsio.ErrExist) {
		return errors.New(errors.ErrCodeStoreLocked,
			"changeset store is locked by another process (remove %s if stale)", path)
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "take changeset lock").WithSubject(path)
}

// Unlock releases the advisory lock. Safe to call when not held.
func (s *Store) Unlock(ctx context.Context) error {
	return s.fs.Remove(ctx, filepath.Join(s.dir, lockName))
}

// MergeWithDerived combines authored changesets with classifier-derived
// ones. When both touch the same package the higher bump wins, and the
// authored summary is preserved. Derived changesets whose packages are
// all covered by authored ones disappear; partially covered ones keep
// their remaining packages. The result is sorted by id.
func MergeWithDerived(authored, derived []*Changeset) []*Changeset {
	// Highest derived bump per package, for raising authored entries.
	derivedBump := map[string]semver.Bump{}
	for _, d := range derived {
		for _, pb := range d.Packages {
			derivedBump[pb.Name] = semver.MaxBump(derivedBump[pb.Name], pb.Bump)
		}
	}

	covered := map[string]bool{}
	var out []*Changeset
	for _, a := range authored {
		merged := &Changeset{ID: a.ID, Summary: a.Summary, Origin: OriginAuthored}
		for _, pb := range a.Packages {
			covered[pb.Name] = true
			merged.Packages = append(merged.Packages, PackageBump{
				Name: pb.Name,
				Bump: semver.MaxBump(pb.Bump, derivedBump[pb.Name]),
			})
		}
		out = append(out, merged)
	}

	for _, d := range derived {
		rest := &Changeset{ID: d.ID, Summary: d.Summary, Origin: OriginDerived}
		for _, pb := range d.Packages {
			if !covered[pb.Name] {
				rest.Packages = append(rest.Packages, pb)
			}
		}
		if len(rest.Packages) == 0 {
			continue
		}
		if rest.ID == "" {
			rest.ID = deriveID(Marshal(rest))
		}
		out = append(out, rest)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
