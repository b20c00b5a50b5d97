package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// DefaultFileMode is applied to files created without an explicit mode.
const DefaultFileMode fs.FileMode = 0o644

// DefaultDirMode is applied to parent directories created implicitly.
const DefaultDirMode fs.FileMode = 0o755

// Primitives are the single-path filesystem mutations the engines build
// on. None of them is atomic across paths and none retries.
type Primitives interface {
	Read(ctx context.Context, path string) ([]byte, error)
	// Write creates or truncates path. A zero mode keeps the mode of an
	// existing file and uses DefaultFileMode for a new one; a non-zero
	// mode is applied in both cases.
	Write(ctx context.Context, path string, content []byte, mode fs.FileMode) error
	Move(ctx context.Context, src, dst string) error
	Copy(ctx context.Context, src, dst string) error
	// Delete removes a file or an empty directory.
	Delete(ctx context.Context, path string) error
	Mkdir(ctx context.Context, path string, mode fs.FileMode) error
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
	// ReadDir lists the entries of a directory.
	ReadDir(ctx context.Context, path string) ([]fs.FileInfo, error)
	// Abs returns the absolute host path for path. Cache keys are built
	// from it so that two spellings of one file share a key.
	Abs(path string) string
}

// FS implements Primitives on a go-billy filesystem.
//
// memfs keeps its tree in unguarded maps, so an FS built by NewMemory
// serializes every call through mu: mutations exclusively, reads shared.
// osfs relies on the kernel and takes no lock.
type FS struct {
	bfs  billy.Filesystem
	root string

	locked bool
	mu     sync.RWMutex
}

// NewLocal returns primitives confined to root on the local disk.
func NewLocal(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, DefaultDirMode); err != nil {
		return nil, err
	}
	return &FS{bfs: osfs.New(abs), root: abs}, nil
}

// NewMemory returns primitives over an empty in-memory filesystem.
func NewMemory() *FS {
	return &FS{bfs: memfs.New(), root: "/", locked: true}
}

func (f *FS) lock() func() {
	if !f.locked {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *FS) rlock() func() {
	if !f.locked {
		return func() {}
	}
	f.mu.RLock()
	return f.mu.RUnlock
}

// Clean normalizes a caller path to a slash-separated absolute path that
// cannot climb above the root.
func Clean(p string) string {
	return path.Clean("/" + filepath.ToSlash(p))
}

func (f *FS) Abs(p string) string {
	return filepath.Join(f.root, filepath.FromSlash(Clean(p)))
}

func (f *FS) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer f.rlock()()
	name := Clean(p)

	info, err := f.bfs.Stat(name)
	if err != nil {
		return nil, wrap("read", p, err)
	}
	if info.IsDir() {
		return nil, wrap("read", p, ErrIsDirectory)
	}

	data, err := util.ReadFile(f.bfs, name)
	return data, wrap("read", p, err)
}

func (f *FS) Write(ctx context.Context, p string, content []byte, mode fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer f.lock()()
	name := Clean(p)

	perm := mode
	if info, err := f.bfs.Stat(name); err == nil {
		if info.IsDir() {
			return wrap("write", p, ErrIsDirectory)
		}
		if perm == 0 {
			perm = info.Mode().Perm()
		}
	}
	if perm == 0 {
		perm = DefaultFileMode
	}

	if err := f.bfs.MkdirAll(path.Dir(name), DefaultDirMode); err != nil {
		return wrap("write", p, err)
	}
	if err := writeFile(f.bfs, name, content, perm); err != nil {
		return wrap("write", p, err)
	}
	if mode != 0 {
		return wrap("write", p, f.chmod(name, mode))
	}
	return nil
}

func (f *FS) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer f.lock()()
	from, to := Clean(src), Clean(dst)

	if _, err := f.bfs.Stat(from); err != nil {
		return wrap("move", src, err)
	}
	if err := f.bfs.MkdirAll(path.Dir(to), DefaultDirMode); err != nil {
		return wrap("move", dst, err)
	}
	return wrap("move", src, f.bfs.Rename(from, to))
}

func (f *FS) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer f.lock()()
	from, to := Clean(src), Clean(dst)

	info, err := f.bfs.Stat(from)
	if err != nil {
		return wrap("copy", src, err)
	}
	if info.IsDir() {
		return wrap("copy", src, ErrIsDirectory)
	}

	in, err := f.bfs.Open(from)
	if err != nil {
		return wrap("copy", src, err)
	}
	defer in.Close()

	if err := f.bfs.MkdirAll(path.Dir(to), DefaultDirMode); err != nil {
		return wrap("copy", dst, err)
	}
	out, err := f.bfs.OpenFile(to, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return wrap("copy", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return wrap("copy", dst, err)
	}
	return wrap("copy", dst, out.Close())
}

func (f *FS) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer f.lock()()
	name := Clean(p)

	// memfs and osfs word this differently; report one error for both.
	if info, err := f.bfs.Stat(name); err == nil && info.IsDir() {
		entries, err := f.bfs.ReadDir(name)
		if err != nil {
			return wrap("delete", p, err)
		}
		if len(entries) > 0 {
			return wrap("delete", p, ErrNotEmpty)
		}
	}
	return wrap("delete", p, f.bfs.Remove(name))
}

func (f *FS) Mkdir(ctx context.Context, p string, mode fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer f.lock()()
	if mode == 0 {
		mode = DefaultDirMode
	}
	return wrap("mkdir", p, f.bfs.MkdirAll(Clean(p), mode))
}

func (f *FS) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer f.rlock()()
	info, err := f.bfs.Stat(Clean(p))
	return info, wrap("stat", p, err)
}

func (f *FS) ReadDir(ctx context.Context, p string) ([]fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer f.rlock()()
	entries, err := f.bfs.ReadDir(Clean(p))
	return entries, wrap("readdir", p, err)
}

// chmod is best effort: billy filesystems that cannot change modes keep
// whatever mode the file was created with.
func (f *FS) chmod(name string, mode fs.FileMode) error {
	if ch, ok := f.bfs.(billy.Change); ok {
		return ch.Chmod(name, mode.Perm())
	}
	return nil
}

func writeFile(bfs billy.Basic, name string, content []byte, perm fs.FileMode) error {
	file, err := bfs.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
