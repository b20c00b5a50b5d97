package mutation

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage/storagetest"
)

type recorded struct {
	kind, phase string
	failed      bool
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (r *fakeRecorder) RecordMutation(kind, phase string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recorded{kind: kind, phase: phase, failed: err != nil})
}

func newExecutor(t *testing.T) (*Executor, *storage.FS, *cache.OperationCache) {
	t.Helper()
	fsys := storage.NewMemory()
	c := cache.NewOperationCache(cache.Config{Capacity: 64})
	return NewExecutor(fsys, c), fsys, c
}

func readString(t *testing.T, fsys storage.Primitives, p string) string {
	t.Helper()
	data, err := fsys.Read(context.Background(), p)
	require.NoError(t, err)
	return string(data)
}

func assertMissing(t *testing.T, fsys storage.Primitives, p string) {
	t.Helper()
	_, err := fsys.Stat(context.Background(), p)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%s should not exist, got %v", p, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		ok   bool
	}{
		{"write", Descriptor{Kind: KindWrite, Path: "/a"}, true},
		{"unknown kind", Descriptor{Kind: "chmod", Path: "/a"}, false},
		{"missing path", Descriptor{Kind: KindDelete}, false},
		{"move without destination", Descriptor{Kind: KindMove, Path: "/a"}, false},
		{"copy without destination", Descriptor{Kind: KindCopy, Path: "/a"}, false},
		{"move", Descriptor{Kind: KindMove, Path: "/a", Destination: "/b"}, true},
		{"update replace", Descriptor{Kind: KindUpdate, Path: "/a", Old: "x", New: "y"}, true},
		{"update new without old", Descriptor{Kind: KindUpdate, Path: "/a", New: "y"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestTouched(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, Descriptor{Kind: KindMove, Path: "/a", Destination: "/b"}.Touched())
	assert.Equal(t, []string{"/b"}, Descriptor{Kind: KindCopy, Path: "/a", Destination: "/b"}.Touched())
	assert.Equal(t, []string{"/a"}, Descriptor{Kind: KindDelete, Path: "/a"}.Touched())
}

func TestExecuteRejectsInvalidWithoutIO(t *testing.T) {
	fsys := storagetest.Wrap(storage.NewMemory())
	e := NewExecutor(fsys, cache.NewOperationCache(cache.Config{Capacity: 4}))

	err := e.Execute(context.Background(), Descriptor{Kind: KindMove, Path: "/a"})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
	assert.Zero(t, fsys.Mutations())
}

func TestApplyAndRevert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  map[string]string
		d      Descriptor
		after  map[string]string
		absent []string
	}{
		{
			name:  "write new file",
			d:     Descriptor{Kind: KindWrite, Path: "/new.txt", Content: []byte("fresh")},
			after: map[string]string{"/new.txt": "fresh"},
		},
		{
			name:  "write over existing",
			setup: map[string]string{"/a.txt": "old"},
			d:     Descriptor{Kind: KindWrite, Path: "/a.txt", Content: []byte("new")},
			after: map[string]string{"/a.txt": "new"},
		},
		{
			name:  "update replaces first occurrence",
			setup: map[string]string{"/a.txt": "foo bar foo"},
			d:     Descriptor{Kind: KindUpdate, Path: "/a.txt", Old: "foo", New: "baz"},
			after: map[string]string{"/a.txt": "baz bar foo"},
		},
		{
			name:  "update whole content",
			setup: map[string]string{"/a.txt": "before"},
			d:     Descriptor{Kind: KindUpdate, Path: "/a.txt", Content: []byte("after")},
			after: map[string]string{"/a.txt": "after"},
		},
		{
			name:   "delete file",
			setup:  map[string]string{"/a.txt": "doomed"},
			d:      Descriptor{Kind: KindDelete, Path: "/a.txt"},
			absent: []string{"/a.txt"},
		},
		{
			name:   "move to free destination",
			setup:  map[string]string{"/a.txt": "A"},
			d:      Descriptor{Kind: KindMove, Path: "/a.txt", Destination: "/b.txt"},
			after:  map[string]string{"/b.txt": "A"},
			absent: []string{"/a.txt"},
		},
		{
			name:   "move over existing destination",
			setup:  map[string]string{"/a.txt": "A", "/b.txt": "B"},
			d:      Descriptor{Kind: KindMove, Path: "/a.txt", Destination: "/b.txt"},
			after:  map[string]string{"/b.txt": "A"},
			absent: []string{"/a.txt"},
		},
		{
			name:  "copy",
			setup: map[string]string{"/a.txt": "A"},
			d:     Descriptor{Kind: KindCopy, Path: "/a.txt", Destination: "/dir/c.txt"},
			after: map[string]string{"/a.txt": "A", "/dir/c.txt": "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fsys, _ := newExecutor(t)
			for p, content := range tt.setup {
				require.NoError(t, fsys.Write(ctx, p, []byte(content), 0))
			}

			backup, err := e.Capture(ctx, tt.d)
			require.NoError(t, err)
			require.NoError(t, e.Apply(ctx, tt.d))

			for p, want := range tt.after {
				assert.Equal(t, want, readString(t, fsys, p))
			}
			for _, p := range tt.absent {
				assertMissing(t, fsys, p)
			}

			require.NoError(t, e.Revert(ctx, tt.d, backup))

			for p, want := range tt.setup {
				assert.Equal(t, want, readString(t, fsys, p), "%s should be restored", p)
			}
			for _, p := range tt.d.Touched() {
				if _, existed := tt.setup[p]; !existed {
					assertMissing(t, fsys, p)
				}
			}
		})
	}
}

func TestRevertRestoresMode(t *testing.T) {
	ctx := context.Background()
	fsys, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	e := NewExecutor(fsys, cache.NewOperationCache(cache.Config{Capacity: 8}))
	require.NoError(t, fsys.Write(ctx, "/script.sh", []byte("#!/bin/sh"), 0o755))

	d := Descriptor{Kind: KindWrite, Path: "/script.sh", Content: []byte("echo"), Mode: 0o600}
	backup, err := e.Capture(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), backup.Mode)

	require.NoError(t, e.Apply(ctx, d))
	require.NoError(t, e.Revert(ctx, d, backup))

	info, err := fsys.Stat(ctx, "/script.sh")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())
}

func TestDeleteDirectoryRevert(t *testing.T) {
	ctx := context.Background()
	e, fsys, _ := newExecutor(t)
	require.NoError(t, fsys.Mkdir(ctx, "/empty", 0o750))

	d := Descriptor{Kind: KindDelete, Path: "/empty"}
	backup, err := e.Capture(ctx, d)
	require.NoError(t, err)
	assert.True(t, backup.IsDir)

	require.NoError(t, e.Apply(ctx, d))
	assertMissing(t, fsys, "/empty")

	require.NoError(t, e.Revert(ctx, d, backup))
	info, err := fsys.Stat(ctx, "/empty")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRevertRemovesCreatedDirectories(t *testing.T) {
	ctx := context.Background()
	e, fsys, _ := newExecutor(t)
	require.NoError(t, fsys.Mkdir(ctx, "/base", 0))

	d := Descriptor{Kind: KindWrite, Path: "/base/a/b/f.txt", Content: []byte("x")}
	backup, err := e.Capture(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"/base/a/b", "/base/a"}, backup.CreatedDirs)

	require.NoError(t, e.Apply(ctx, d))
	require.NoError(t, e.Revert(ctx, d, backup))

	assertMissing(t, fsys, "/base/a")
	_, err = fsys.Stat(ctx, "/base")
	assert.NoError(t, err)
}

func TestRevertKeepsDirectoriesWithOtherEntries(t *testing.T) {
	ctx := context.Background()
	e, fsys, _ := newExecutor(t)

	d := Descriptor{Kind: KindWrite, Path: "/a/b/f.txt", Content: []byte("x")}
	backup, err := e.Capture(ctx, d)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, d))

	// Written outside the mutation; its directory must survive the revert.
	require.NoError(t, fsys.Write(ctx, "/a/other.txt", []byte("o"), 0))

	require.NoError(t, e.Revert(ctx, d, backup))
	assertMissing(t, fsys, "/a/b")
	assert.Equal(t, "o", readString(t, fsys, "/a/other.txt"))
}

func TestCheckDeleteNonEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	e, fsys, _ := newExecutor(t)
	require.NoError(t, fsys.Write(ctx, "/full/a.txt", []byte("A"), 0))

	d := Descriptor{Kind: KindDelete, Path: "/full"}
	checkErr := e.Check(ctx, d)
	assert.ErrorIs(t, checkErr, storage.ErrNotEmpty)

	applyErr := e.Apply(ctx, d)
	assert.Equal(t, storage.KindOf(applyErr), storage.KindOf(checkErr))
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	e, fsys, _ := newExecutor(t)

	err := e.Apply(ctx, Descriptor{Kind: KindUpdate, Path: "/missing.txt", Content: []byte("x")})
	assert.Equal(t, storage.KindNotFound, storage.KindOf(err))

	require.NoError(t, fsys.Write(ctx, "/a.txt", []byte("hello"), 0))
	err = e.Apply(ctx, Descriptor{Kind: KindUpdate, Path: "/a.txt", Old: "absent", New: "x"})
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "hello", readString(t, fsys, "/a.txt"))
}

func TestRevertWithoutBackup(t *testing.T) {
	e, _, _ := newExecutor(t)
	err := e.Revert(context.Background(), Descriptor{Kind: KindWrite, Path: "/a"}, nil)
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestCheckDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	fsys := storagetest.Wrap(storage.NewMemory())
	require.NoError(t, fsys.Write(ctx, "/a.txt", []byte("abc"), 0))
	require.NoError(t, fsys.Mkdir(ctx, "/dir", 0))
	fsys.Reset()

	e := NewExecutor(fsys, cache.NewOperationCache(cache.Config{Capacity: 8}))

	assert.NoError(t, e.Check(ctx, Descriptor{Kind: KindWrite, Path: "/new.txt"}))
	assert.NoError(t, e.Check(ctx, Descriptor{Kind: KindUpdate, Path: "/a.txt", Old: "b", New: "x"}))
	assert.NoError(t, e.Check(ctx, Descriptor{Kind: KindDelete, Path: "/a.txt"}))
	assert.NoError(t, e.Check(ctx, Descriptor{Kind: KindMove, Path: "/a.txt", Destination: "/b.txt"}))
	assert.NoError(t, e.Check(ctx, Descriptor{Kind: KindCopy, Path: "/a.txt", Destination: "/b.txt"}))

	assert.Equal(t, storage.KindIsDirectory, storage.KindOf(e.Check(ctx, Descriptor{Kind: KindWrite, Path: "/dir"})))
	assert.Equal(t, storage.KindNotFound, storage.KindOf(e.Check(ctx, Descriptor{Kind: KindDelete, Path: "/nope"})))
	assert.ErrorIs(t, e.Check(ctx, Descriptor{Kind: KindUpdate, Path: "/a.txt", Old: "zzz", New: "x"}), ErrNoMatch)
	assert.Equal(t, storage.KindIsDirectory, storage.KindOf(e.Check(ctx, Descriptor{Kind: KindCopy, Path: "/dir", Destination: "/d2"})))

	assert.Zero(t, fsys.Mutations())
	assert.Equal(t, "abc", readString(t, fsys, "/a.txt"))
}

func TestReadThroughCache(t *testing.T) {
	ctx := context.Background()
	fsys := storagetest.Wrap(storage.NewMemory())
	c := cache.NewOperationCache(cache.Config{Capacity: 8})
	e := NewExecutor(fsys, c)

	require.NoError(t, e.Execute(ctx, Descriptor{Kind: KindWrite, Path: "/a.txt", Content: []byte("v1")}))

	data, err := e.Read(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.True(t, c.HasFile("/a.txt"))

	reads := fsys.Calls(storagetest.OpRead)
	_, err = e.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, reads, fsys.Calls(storagetest.OpRead), "second read should be served from cache")

	require.NoError(t, e.Execute(ctx, Descriptor{Kind: KindWrite, Path: "/a.txt", Content: []byte("v2")}))
	assert.False(t, c.HasFile("/a.txt"))

	data, err = e.Read(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestMoveInvalidatesBothPaths(t *testing.T) {
	ctx := context.Background()
	e, _, c := newExecutor(t)

	require.NoError(t, e.Execute(ctx, Descriptor{Kind: KindWrite, Path: "/a.txt", Content: []byte("A")}))
	_, err := e.Read(ctx, "/a.txt")
	require.NoError(t, err)
	c.SetFile("/b.txt", []byte("stale"))
	require.True(t, c.HasFile("/a.txt"))

	require.NoError(t, e.Execute(ctx, Descriptor{Kind: KindMove, Path: "/a.txt", Destination: "/b.txt"}))

	assert.False(t, c.Has("file:/a.txt"))
	assert.False(t, c.Has("file:/b.txt"))

	data, err := e.Read(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))
}

func TestFailedApplyStillInvalidates(t *testing.T) {
	ctx := context.Background()
	fsys := storagetest.Wrap(storage.NewMemory())
	c := cache.NewOperationCache(cache.Config{Capacity: 8})
	e := NewExecutor(fsys, c)

	require.NoError(t, fsys.Write(ctx, "/a.txt", []byte("A"), 0))
	c.SetFile(fsys.Abs("/a.txt"), []byte("A"))
	fsys.FailOn(storagetest.OpWrite, "/a.txt", fs.ErrPermission)

	err := e.Apply(ctx, Descriptor{Kind: KindWrite, Path: "/a.txt", Content: []byte("B")})
	assert.Equal(t, storage.KindPermissionDenied, storage.KindOf(err))
	assert.False(t, c.HasFile("/a.txt"))
}

func TestRecorderPhases(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	e := NewExecutor(storage.NewMemory(), cache.NewOperationCache(cache.Config{Capacity: 8}), WithRecorder(rec))

	d := Descriptor{Kind: KindWrite, Path: "/a.txt", Content: []byte("x")}
	require.NoError(t, e.Check(ctx, d))
	b, err := e.Capture(ctx, d)
	require.NoError(t, err)
	require.NoError(t, e.Apply(ctx, d))
	require.NoError(t, e.Revert(ctx, d, b))
	assert.Error(t, e.Apply(ctx, Descriptor{Kind: KindDelete, Path: "/missing"}))

	assert.Equal(t, []recorded{
		{kind: "write", phase: PhaseCheck},
		{kind: "write", phase: PhaseApply},
		{kind: "write", phase: PhaseRevert},
		{kind: "delete", phase: PhaseApply, failed: true},
	}, rec.seen)
}
