package fsio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOS_WriteAtomicAndRead(t *testing.T) {
	ctx := context.Background()
	fs := NewOS()
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "manifest.json")

	if err := fs.WriteAtomic(ctx, path, []byte("hello")); err != nil {
		t.Fatalf("WriteAtomic() error: %v", err)
	}

	data, err := fs.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Read() = %q, want %q", data, "hello")
	}

	// No temp files may survive a successful write.
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestOS_ReadMissing(t *testing.T) {
	fs := NewOS()
	_, err := fs.Read(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("Read(missing) error = %v, want ErrNotExist", err)
	}
}

func TestOS_WriteExclusive(t *testing.T) {
	ctx := context.Background()
	fs := NewOS()
	path := filepath.Join(t.TempDir(), "store", ".lock")

	if err := fs.WriteExclusive(ctx, path, []byte("pid")); err != nil {
		t.Fatalf("WriteExclusive() error: %v", err)
	}
	if err := fs.WriteExclusive(ctx, path, []byte("pid")); !errors.Is(err, ErrExist) {
		t.Errorf("second WriteExclusive() error = %v, want ErrExist", err)
	}

	// Removing the file frees the path again.
	if err := fs.Remove(ctx, path); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteExclusive(ctx, path, []byte("pid")); err != nil {
		t.Errorf("WriteExclusive() after Remove error = %v, want nil", err)
	}
}

func TestMemFS_WriteExclusive(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()

	if err := fs.WriteExclusive(ctx, "/store/.lock", nil); err != nil {
		t.Fatalf("WriteExclusive() error: %v", err)
	}
	if err := fs.WriteExclusive(ctx, "/store/.lock", nil); !errors.Is(err, ErrExist) {
		t.Errorf("second WriteExclusive() error = %v, want ErrExist", err)
	}
}

func TestOS_RemoveMissing(t *testing.T) {
	fs := NewOS()
	if err := fs.Remove(context.Background(), filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("Remove(missing) error = %v, want nil", err)
	}
}

func TestOS_ListSorted(t *testing.T) {
	ctx := context.Background()
	fs := NewOS()
	dir := t.TempDir()
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		if err := fs.WriteAtomic(ctx, filepath.Join(dir, name), []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := fs.List(ctx, dir)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(paths))
	}
	for i, want := range []string{"a.txt", "b.txt", "c.txt"} {
		if filepath.Base(paths[i]) != want {
			t.Errorf("List()[%d] = %s, want %s", i, filepath.Base(paths[i]), want)
		}
	}
}

func TestOS_CancelledContext(t *testing.T) {
	fs := NewOS()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fs.Read(ctx, "whatever"); !errors.Is(err, context.Canceled) {
		t.Errorf("Read(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestMemFS_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()
	fs.Seed("/ws/a/package.json", []byte(`{"name":"a"}`))

	ok, err := fs.Exists(ctx, "/ws/a/package.json")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}

	// Directory prefixes exist too.
	ok, _ = fs.Exists(ctx, "/ws/a")
	if !ok {
		t.Error("Exists(dir) = false, want true")
	}

	if err := fs.Remove(ctx, "/ws/a/package.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Read(ctx, "/ws/a/package.json"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Read(removed) error = %v, want ErrNotExist", err)
	}
}

func TestMemFS_ListChildren(t *testing.T) {
	ctx := context.Background()
	fs := NewMem()
	fs.Seed("/ws/pkgs/b/package.json", []byte("{}"))
	fs.Seed("/ws/pkgs/a/package.json", []byte("{}"))
	fs.Seed("/ws/other.txt", []byte("x"))

	paths, err := fs.List(ctx, "/ws/pkgs")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != "/ws/pkgs/a" || paths[1] != "/ws/pkgs/b" {
		t.Errorf("List() = %v, want [/ws/pkgs/a /ws/pkgs/b]", paths)
	}
}
