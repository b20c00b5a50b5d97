// Package storagetest provides fault injection for storage.Primitives.
package storagetest

import (
	"context"
	"io/fs"
	"sync"

	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage"
)

// Op names a primitive.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpMove   Op = "move"
	OpCopy   Op = "copy"
	OpDelete Op = "delete"
	OpMkdir  Op = "mkdir"
	OpStat   Op = "stat"
)

type rule struct {
	op   Op
	path string
	err  error
	skip int
}

// Faulty wraps a Primitives and fails chosen calls. Paths are compared
// after storage.Clean; for move and copy the source path is matched.
type Faulty struct {
	storage.Primitives

	mu    sync.Mutex
	rules []*rule
	calls map[Op]int
}

// Wrap returns a Faulty that delegates to inner until told otherwise.
func Wrap(inner storage.Primitives) *Faulty {
	return &Faulty{Primitives: inner, calls: make(map[Op]int)}
}

// FailOn makes every op call on p return err, wrapped in a PathError.
func (f *Faulty) FailOn(op Op, p string, err error) {
	f.FailAfter(op, p, 0, err)
}

// FailAfter lets the first n matching calls through, then fails the rest.
func (f *Faulty) FailAfter(op Op, p string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &rule{op: op, path: storage.Clean(p), err: err, skip: n})
}

// Reset removes every rule and zeroes the counters.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	f.calls = make(map[Op]int)
}

// Calls returns how many times op was invoked.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Mutations returns the number of write-class calls.
func (f *Faulty) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[OpWrite] + f.calls[OpMove] + f.calls[OpCopy] + f.calls[OpDelete] + f.calls[OpMkdir]
}

func (f *Faulty) hit(op Op, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	clean := storage.Clean(p)
	for _, r := range f.rules {
		if r.op != op || r.path != clean {
			continue
		}
		if r.skip > 0 {
			r.skip--
			continue
		}
		return &storage.PathError{Op: string(op), Path: p, Err: r.err}
	}
	return nil
}

func (f *Faulty) Read(ctx context.Context, p string) ([]byte, error) {
	if err := f.hit(OpRead, p); err != nil {
		return nil, err
	}
	return f.Primitives.Read(ctx, p)
}

func (f *Faulty) Write(ctx context.Context, p string, content []byte, mode fs.FileMode) error {
	if err := f.hit(OpWrite, p); err != nil {
		return err
	}
	return f.Primitives.Write(ctx, p, content, mode)
}

func (f *Faulty) Move(ctx context.Context, src, dst string) error {
	if err := f.hit(OpMove, src); err != nil {
		return err
	}
	return f.Primitives.Move(ctx, src, dst)
}

func (f *Faulty) Copy(ctx context.Context, src, dst string) error {
	if err := f.hit(OpCopy, src); err != nil {
		return err
	}
	return f.Primitives.Copy(ctx, src, dst)
}

func (f *Faulty) Delete(ctx context.Context, p string) error {
	if err := f.hit(OpDelete, p); err != nil {
		return err
	}
	return f.Primitives.Delete(ctx, p)
}

func (f *Faulty) Mkdir(ctx context.Context, p string, mode fs.FileMode) error {
	if err := f.hit(OpMkdir, p); err != nil {
		return err
	}
	return f.Primitives.Mkdir(ctx, p, mode)
}

func (f *Faulty) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := f.hit(OpStat, p); err != nil {
		return nil, err
	}
	return f.Primitives.Stat(ctx, p)
}
