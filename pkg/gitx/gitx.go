// Package gitx answers the version-control questions the change
// classifier asks: which files changed since a ref, and where is HEAD.
// It wraps go-git so no git binary is needed on the machine.
package gitx

import (
	"context"
	"fmt"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Status describes what happened to a changed file.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
)

// ChangedFile is one file that differs between two revisions, with a
// path relative to the repository root.
type ChangedFile struct {
	Path   string
	Status Status
}

// Repo is an opened git repository.
type Repo struct {
	repo *git.Repository
}

// Open finds the repository containing dir, walking up to the nearest
// .git like the git binary does.
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", dir, err)
	}
	return &Repo{repo: r}, nil
}

// Head returns the commit hash HEAD points at.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// CurrentBranch returns the short branch name, or "" when HEAD is
// detached.
func (r *Repo) CurrentBranch() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", nil
	}
	return ref.Name().Short(), nil
}

// ChangedFiles diffs the given revision against HEAD and folds in any
// uncommitted working-tree changes. The result is sorted by path; a
// file both committed and dirty appears once with its committed status.
func (r *Repo) ChangedFiles(ctx context.Context, sinceRev string) ([]ChangedFile, error) {
	since, err := r.treeAt(sinceRev)
	if err != nil {
		return nil, err
	}
	headRef, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	head, err := r.treeAt(headRef.Hash().String())
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, since, head, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff %s..HEAD: %w", sinceRev, err)
	}

	byPath := map[string]Status{}
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("classify change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			byPath[ch.To.Name] = StatusAdded
		case merkletrie.Delete:
			byPath[ch.From.Name] = StatusDeleted
		case merkletrie.Modify:
			byPath[ch.To.Name] = StatusModified
		}
	}
	if err := r.foldWorktree(byPath); err != nil {
		return nil, err
	}

	out := make([]ChangedFile, 0, len(byPath))
	for path, status := range byPath {
		out = append(out, ChangedFile{Path: path, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// foldWorktree adds uncommitted changes, keeping committed statuses for
// paths already present.
func (r *Repo) foldWorktree(byPath map[string]Status) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}
	for path, fs := range status {
		if _, ok := byPath[path]; ok {
			continue
		}
		switch {
		case fs.Worktree == git.Untracked || fs.Staging == git.Added:
			byPath[path] = StatusAdded
		case fs.Worktree == git.Deleted || fs.Staging == git.Deleted:
			byPath[path] = StatusDeleted
		case fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified:
			byPath[path] = StatusModified
		}
	}
	return nil
}

// Tag creates a lightweight tag at the given revision, typically after
// a successful apply ("pkg-a@1.2.0").
func (r *Repo) Tag(name, rev string) error {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", rev, err)
	}
	if _, err := r.repo.CreateTag(name, *hash, nil); err != nil {
		return fmt.Errorf("create tag %s: %w", name, err)
	}
	return nil
}

func (r *Repo) treeAt(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree of %s: %w", hash, err)
	}
	return tree, nil
}
