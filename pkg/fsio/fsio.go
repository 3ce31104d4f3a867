// Package fsio defines the filesystem interface consumed by the engine.
//
// Every component that touches disk (workspace discovery, the changeset
// store, the applier) goes through [FS] instead of the os package. This
// keeps the engine testable with [MemFS] and concentrates the atomic
// write discipline in one place: WriteAtomic always writes to a
// temporary file in the destination directory and renames it into
// place, so a crash never leaves a partially written manifest.
package fsio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotExist is returned by Read when the path does not exist.
// It wraps the platform error so errors.Is(err, fs.ErrNotExist) also holds.
var ErrNotExist = errors.New("file does not exist")

// ErrExist is returned by WriteExclusive when the path already exists.
var ErrExist = errors.New("file already exists")

// FS is the filesystem collaborator. All operations accept a context so
// asynchronous implementations can honor cancellation; the engine treats
// every call as a potential suspension point.
type FS interface {
	// Read returns the full contents of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)
	// WriteAtomic writes data to path atomically (temp file + rename).
	WriteAtomic(ctx context.Context, path string, data []byte) error
	// WriteExclusive creates path with data, failing with ErrExist when
	// the path is already present. Used for advisory lock files.
	WriteExclusive(ctx context.Context, path string, data []byte) error
	// Remove deletes the file at path. Removing a missing file is not an error.
	Remove(ctx context.Context, path string) error
	// List returns the entries of dir as full paths, sorted by name.
	List(ctx context.Context, dir string) ([]string, error)
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// OS is the production FS backed by the local filesystem.
type OS struct{}

// NewOS returns an FS backed by the os package.
func NewOS() FS { return &OS{} }

// Read returns the file contents, or ErrNotExist for missing files.
func (OS) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteAtomic writes data via a temp file in the same directory followed
// by a rename, creating parent directories as needed.
func (OS) WriteAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// WriteExclusive creates path with O_EXCL so exactly one caller wins
// when several race for the same path.
func (OS) WriteExclusive(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return fmt.Errorf("%w: %s", ErrExist, path)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Remove deletes path. A missing file is not an error.
func (OS) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// List returns the entries of dir as full paths, sorted by name.
// A missing path or a plain file yields an empty listing.
func (OS) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Exists reports whether path exists.
func (OS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// MemFS is an in-memory FS for tests. It is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMem returns an empty in-memory filesystem.
func NewMem() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Seed adds a file without the ceremony of WriteAtomic. Intended for
// test setup.
func (m *MemFS) Seed(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean(path)] = data
}

// Read returns the file contents, or ErrNotExist.
func (m *MemFS) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[clean(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return append([]byte(nil), data...), nil
}

// WriteAtomic stores data under path.
func (m *MemFS) WriteAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean(path)] = append([]byte(nil), data...)
	return nil
}

// WriteExclusive stores data under path unless it is already present.
func (m *MemFS) WriteExclusive(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	if _, ok := m.files[p]; ok {
		return fmt.Errorf("%w: %s", ErrExist, path)
	}
	m.files[p] = append([]byte(nil), data...)
	return nil
}

// Remove deletes path if present.
func (m *MemFS) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, clean(path))
	return nil
}

// List returns the direct children of dir, sorted.
func (m *MemFS) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := clean(dir) + "/"
	seen := make(map[string]bool)
	var paths []string
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		child := prefix + strings.SplitN(rest, "/", 2)[0]
		if !seen[child] {
			seen[child] = true
			paths = append(paths, child)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Exists reports whether path is a file or a directory prefix.
func (m *MemFS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := clean(path)
	if _, ok := m.files[p]; ok {
		return true, nil
	}
	prefix := p + "/"
	for name := range m.files {
		if strings.HasPrefix(name, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func clean(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

var (
	_ FS = (*OS)(nil)
	_ FS = (*MemFS)(nil)
)
