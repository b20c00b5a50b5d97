package batch

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage/storagetest"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
)

type fixture struct {
	fs     *storagetest.Faulty
	engine *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	fsys := storagetest.Wrap(storage.NewMemory())
	exec := mutation.NewExecutor(fsys, cache.NewOperationCache(cache.Config{Capacity: 64}))
	return &fixture{fs: fsys, engine: NewEngine(exec, opts...)}
}

func (f *fixture) seed(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, f.fs.Write(context.Background(), p, []byte("content of "+p), 0))
	}
	f.fs.Reset()
}

func (f *fixture) snapshot(t *testing.T, paths ...string) map[string]string {
	t.Helper()
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := f.fs.Primitives.Read(context.Background(), p)
		if err != nil {
			out[p] = "<" + string(storage.KindOf(err)) + ">"
			continue
		}
		out[p] = string(data)
	}
	return out
}

func deletes(n int) ([]mutation.Descriptor, []string) {
	ops := make([]mutation.Descriptor, n)
	paths := make([]string, n)
	for i := range ops {
		paths[i] = fmt.Sprintf("/files/%02d.txt", i)
		ops[i] = mutation.Descriptor{Kind: mutation.KindDelete, Path: paths[i]}
	}
	return ops, paths
}

func indexes[T any](items []T, index func(T) int) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = index(item)
	}
	return out
}

func TestDeleteBatchWithPermissionFailures(t *testing.T) {
	f := newFixture(t)
	ops, paths := deletes(10)
	f.seed(t, paths...)
	f.fs.FailOn(storagetest.OpDelete, paths[3], fs.ErrPermission)
	f.fs.FailOn(storagetest.OpDelete, paths[7], fs.ErrPermission)

	batchID, err := f.engine.Create(ops, 3)
	require.NoError(t, err)

	result, err := f.engine.Execute(context.Background(), batchID, Options{})
	require.NoError(t, err)

	assert.Equal(t, 10, result.TotalOperations)
	assert.Equal(t, 8, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, StateFailed, result.Status)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, ops[3], result.Errors[0].Operation)
	assert.Equal(t, ops[7], result.Errors[1].Operation)
	for _, e := range result.Errors {
		assert.Contains(t, e.Error, "permission denied")
		assert.Equal(t, storage.KindPermissionDenied, storage.KindOf(e.Err))
	}

	after := f.snapshot(t, paths...)
	for i, p := range paths {
		if i == 3 || i == 7 {
			assert.Equal(t, "content of "+p, after[p])
			continue
		}
		assert.Equal(t, "<not_found>", after[p])
	}

	b, err := f.engine.Status(batchID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, b.State)
	assert.Equal(t, result, b.Result)
}

func TestOutcomesIndependentOfConcurrency(t *testing.T) {
	run := func(concurrency int) *Result {
		f := newFixture(t)
		ops, paths := deletes(12)
		f.seed(t, paths[:9]...) // the last three fail with not found
		f.fs.FailOn(storagetest.OpDelete, paths[1], fs.ErrPermission)
		f.fs.FailOn(storagetest.OpDelete, paths[5], fs.ErrPermission)

		batchID, err := f.engine.Create(ops, concurrency)
		require.NoError(t, err)
		result, err := f.engine.Execute(context.Background(), batchID, Options{})
		require.NoError(t, err)
		return result
	}

	errIndex := func(e OperationError) int { return e.Index }
	okIndex := func(r OperationResult) int { return r.Index }

	baseline := run(1)
	for _, c := range []int{2, 5, 12, 20} {
		got := run(c)
		assert.Equal(t, indexes(baseline.Results, okIndex), indexes(got.Results, okIndex), "concurrency %d", c)
		assert.Equal(t, indexes(baseline.Errors, errIndex), indexes(got.Errors, errIndex), "concurrency %d", c)
	}
	assert.Equal(t, []int{1, 5, 9, 10, 11}, indexes(baseline.Errors, errIndex))
}

func TestDryRunNeverMutates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "/a.txt", "/b.txt", "/c.txt")
	paths := []string{"/a.txt", "/b.txt", "/c.txt", "/new.txt", "/moved.txt", "/copy.txt"}
	before := f.snapshot(t, paths...)

	ops := []mutation.Descriptor{
		{Kind: mutation.KindWrite, Path: "/new.txt", Content: []byte("x")},
		{Kind: mutation.KindUpdate, Path: "/a.txt", Old: "content", New: "changed"},
		{Kind: mutation.KindDelete, Path: "/b.txt"},
		{Kind: mutation.KindMove, Path: "/c.txt", Destination: "/moved.txt"},
		{Kind: mutation.KindCopy, Path: "/a.txt", Destination: "/copy.txt"},
		{Kind: mutation.KindDelete, Path: "/does-not-exist.txt"},
	}
	batchID, err := f.engine.Create(ops, 2)
	require.NoError(t, err)

	result, err := f.engine.Execute(context.Background(), batchID, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 5, result.Successful)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 5, result.Errors[0].Index)

	assert.Equal(t, before, f.snapshot(t, paths...))
	assert.Zero(t, f.fs.Mutations())
}

func TestStopOnErrorSkipsRemainingChunks(t *testing.T) {
	f := newFixture(t)
	ops, paths := deletes(9)
	f.seed(t, paths...)
	f.fs.FailOn(storagetest.OpDelete, paths[4], fs.ErrPermission)

	batchID, err := f.engine.Create(ops, 3)
	require.NoError(t, err)

	result, err := f.engine.Execute(context.Background(), batchID, Options{StopOnError: true})
	require.NoError(t, err)

	// The failing chunk [3,6) settles in full, chunk [6,9) never starts.
	assert.Equal(t, 5, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, StateFailed, result.Status)
	assert.Equal(t, 6, f.fs.Calls(storagetest.OpDelete))

	after := f.snapshot(t, paths[6:]...)
	for _, p := range paths[6:] {
		assert.Equal(t, "content of "+p, after[p])
	}
}

func TestChunkConcurrencyCeiling(t *testing.T) {
	var inflight, peak atomic.Int32
	exec := &slowExecutor{delay: 5 * time.Millisecond, inflight: &inflight, peak: &peak}
	engine := NewEngine(exec)

	ops, _ := deletes(10)
	batchID, err := engine.Create(ops, 4)
	require.NoError(t, err)

	result, err := engine.Execute(context.Background(), batchID, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Successful)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.Equal(t, int32(0), inflight.Load())
}

type slowExecutor struct {
	delay    time.Duration
	inflight *atomic.Int32
	peak     *atomic.Int32
}

func (s *slowExecutor) Apply(ctx context.Context, d mutation.Descriptor) error {
	n := s.inflight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay)
	s.inflight.Add(-1)
	return nil
}

func (s *slowExecutor) Check(ctx context.Context, d mutation.Descriptor) error {
	return nil
}

// Run with -race: every item in a chunk hits the same memfs tree at once.
func TestWideChunkOnMemoryBackend(t *testing.T) {
	f := newFixture(t)

	const n = 128
	ops := make([]mutation.Descriptor, n)
	paths := make([]string, n)
	for i := range ops {
		paths[i] = fmt.Sprintf("/out/%02d/%03d.txt", i%8, i)
		ops[i] = mutation.Descriptor{Kind: mutation.KindWrite, Path: paths[i], Content: []byte(paths[i])}
	}

	batchID, err := f.engine.Create(ops, 64)
	require.NoError(t, err)

	result, err := f.engine.Execute(context.Background(), batchID, Options{})
	require.NoError(t, err)
	assert.Equal(t, n, result.Successful)
	assert.Equal(t, StateCompleted, result.Status)

	after := f.snapshot(t, paths...)
	for _, p := range paths {
		assert.Equal(t, p, after[p])
	}
}

func TestDryRunRejectsNonEmptyDirectoryDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "/full/a.txt")
	require.NoError(t, f.fs.Mkdir(context.Background(), "/empty", 0))

	ops := []mutation.Descriptor{
		{Kind: mutation.KindDelete, Path: "/full"},
		{Kind: mutation.KindDelete, Path: "/empty"},
	}
	dry, err := f.engine.Create(ops, 2)
	require.NoError(t, err)
	predicted, err := f.engine.Execute(context.Background(), dry, Options{DryRun: true})
	require.NoError(t, err)

	applied, err := f.engine.Create(ops, 2)
	require.NoError(t, err)
	actual, err := f.engine.Execute(context.Background(), applied, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, indexes(predicted.Results, func(r OperationResult) int { return r.Index }))
	assert.Equal(t, indexes(actual.Results, func(r OperationResult) int { return r.Index }),
		indexes(predicted.Results, func(r OperationResult) int { return r.Index }))
	require.Len(t, predicted.Errors, 1)
	assert.Equal(t, 0, predicted.Errors[0].Index)
	assert.Equal(t, storage.KindAlreadyExists, storage.KindOf(predicted.Errors[0].Err))
	require.Len(t, actual.Errors, 1)
	assert.Equal(t, storage.KindOf(predicted.Errors[0].Err), storage.KindOf(actual.Errors[0].Err))
}

func TestCancelledContextFailsRemaining(t *testing.T) {
	f := newFixture(t)
	ops, paths := deletes(4)
	f.seed(t, paths...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batchID, err := f.engine.Create(ops, 2)
	require.NoError(t, err)

	result, err := f.engine.Execute(ctx, batchID, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Failed)
	for _, e := range result.Errors {
		assert.ErrorIs(t, e.Err, context.Canceled)
	}
	assert.Zero(t, f.fs.Mutations())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, WithMaxConcurrency(8))

	_, err := f.engine.Create(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)

	_, err = f.engine.Create(nil, 9)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)

	_, err = f.engine.Create([]mutation.Descriptor{{Kind: mutation.KindCopy, Path: "/a"}}, 1)
	assert.ErrorIs(t, err, mutation.ErrInvalidDescriptor)

	assert.Empty(t, f.engine.List())
}

func TestEmptyBatchCompletes(t *testing.T) {
	f := newFixture(t)
	batchID, err := f.engine.Create(nil, DefaultConcurrency)
	require.NoError(t, err)

	result, err := f.engine.Execute(context.Background(), batchID, Options{})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.Status)
	assert.Zero(t, result.TotalOperations)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
}

func TestExecuteOnlyOnce(t *testing.T) {
	f := newFixture(t)
	batchID, err := f.engine.Create([]mutation.Descriptor{{Kind: mutation.KindWrite, Path: "/a.txt"}}, 1)
	require.NoError(t, err)

	_, err = f.engine.Execute(context.Background(), batchID, Options{})
	require.NoError(t, err)

	_, err = f.engine.Execute(context.Background(), batchID, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.engine.Execute(context.Background(), id.NewBatchID(), Options{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndPrune(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	f := newFixture(t, WithClock(clock))

	done, err := f.engine.Create(nil, 1)
	require.NoError(t, err)
	waiting, err := f.engine.Create(nil, 1)
	require.NoError(t, err)
	_, err = f.engine.Execute(context.Background(), done, Options{})
	require.NoError(t, err)

	list := f.engine.List()
	require.Len(t, list, 2)
	assert.Equal(t, done, list[0].ID)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	assert.Equal(t, 1, f.engine.Prune(30*time.Minute))
	_, err = f.engine.Status(waiting)
	assert.NoError(t, err)
}

type batchRecorder struct {
	status                      string
	successful, failed, skipped int
}

func (r *batchRecorder) RecordBatch(status string, _ bool, successful, failed, skipped int, _ time.Duration) {
	r.status, r.successful, r.failed, r.skipped = status, successful, failed, skipped
}

func TestRecorder(t *testing.T) {
	rec := &batchRecorder{}
	f := newFixture(t, WithRecorder(rec))
	ops, paths := deletes(3)
	f.seed(t, paths[:2]...)

	batchID, err := f.engine.Create(ops, 3)
	require.NoError(t, err)
	_, err = f.engine.Execute(context.Background(), batchID, Options{})
	require.NoError(t, err)

	assert.Equal(t, &batchRecorder{status: "failed", successful: 2, failed: 1}, rec)
}
