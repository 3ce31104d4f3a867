package gitx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	return dir, wt
}

func commit(t *testing.T, wt *git.Worktree, msg string) string {
	t.Helper()
	h, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return h.String()
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestChangedFiles(t *testing.T) {
	ctx := context.Background()
	dir, wt := initRepo(t)

	writeFile(t, dir, "src/index.ts", "export {}\n")
	writeFile(t, dir, "README.md", "# hi\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	base := commit(t, wt, "initial")

	writeFile(t, dir, "src/index.ts", "export const x = 1\n")
	writeFile(t, dir, "src/new.ts", "export {}\n")
	if err := os.Remove(filepath.Join(dir, "README.md")); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "second")

	repo, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	files, err := repo.ChangedFiles(ctx, base)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]Status{
		"README.md":    StatusDeleted,
		"src/index.ts": StatusModified,
		"src/new.ts":   StatusAdded,
	}
	if len(files) != len(want) {
		t.Fatalf("files = %+v, want %d entries", files, len(want))
	}
	for _, f := range files {
		if want[f.Path] != f.Status {
			t.Errorf("%s = %s, want %s", f.Path, f.Status, want[f.Path])
		}
	}
	// Sorted by path.
	for i := 1; i < len(files); i++ {
		if files[i-1].Path > files[i].Path {
			t.Errorf("not sorted: %s before %s", files[i-1].Path, files[i].Path)
		}
	}
}

func TestChangedFiles_IncludesWorktree(t *testing.T) {
	ctx := context.Background()
	dir, wt := initRepo(t)

	writeFile(t, dir, "a.txt", "one\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	base := commit(t, wt, "initial")

	// Uncommitted: one tracked edit, one untracked file.
	writeFile(t, dir, "a.txt", "two\n")
	writeFile(t, dir, "b.txt", "new\n")

	repo, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	files, err := repo.ChangedFiles(ctx, base)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]Status{}
	for _, f := range files {
		got[f.Path] = f.Status
	}
	if got["a.txt"] != StatusModified {
		t.Errorf("a.txt = %s, want modified", got["a.txt"])
	}
	if got["b.txt"] != StatusAdded {
		t.Errorf("b.txt = %s, want added", got["b.txt"])
	}
}

func TestHeadAndBranch(t *testing.T) {
	dir, wt := initRepo(t)
	writeFile(t, dir, "a.txt", "x\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	h := commit(t, wt, "initial")

	repo, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head != h {
		t.Errorf("Head() = %s, want %s", head, h)
	}
	branch, err := repo.CurrentBranch()
	if err != nil {
		t.Fatal(err)
	}
	if branch != "master" && branch != "main" {
		t.Errorf("CurrentBranch() = %q", branch)
	}
}

func TestTag(t *testing.T) {
	dir, wt := initRepo(t)
	writeFile(t, dir, "a.txt", "x\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	h := commit(t, wt, "initial")

	repo, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Tag("pkg-a@1.0.0", h); err != nil {
		t.Fatal(err)
	}
	// Tagging the same name again fails.
	if err := repo.Tag("pkg-a@1.0.0", h); err == nil {
		t.Error("duplicate tag did not fail")
	}
}

func TestOpen_NotARepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open on a plain directory did not fail")
	}
}
