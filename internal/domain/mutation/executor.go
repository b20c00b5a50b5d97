package mutation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage"
)

// Phases reported to the Recorder.
const (
	PhaseApply  = "apply"
	PhaseRevert = "revert"
	PhaseCheck  = "check"
)

// Recorder receives one observation per primitive run.
type Recorder interface {
	RecordMutation(kind, phase string, err error, duration time.Duration)
}

// Option configures an Executor.
type Option func(*Executor)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// Executor is the single mutation path: every change to the filesystem
// made by the engines goes through Apply or Revert, which invalidate the
// operation cache for each touched path before returning.
type Executor struct {
	fs       storage.Primitives
	cache    *cache.OperationCache
	log      *logging.Logger
	recorder Recorder
}

// NewExecutor creates an executor over fsys that keeps c coherent.
func NewExecutor(fsys storage.Primitives, c *cache.OperationCache, opts ...Option) *Executor {
	e := &Executor{
		fs:    fsys,
		cache: c,
		log:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("mutation")
	return e
}

// Primitives returns the underlying filesystem.
func (e *Executor) Primitives() storage.Primitives {
	return e.fs
}

// Execute validates and applies d without keeping a backup. It is the
// path for standalone mutations outside a transaction or batch.
func (e *Executor) Execute(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return e.Apply(ctx, d)
}

// Capture reads the state Revert needs to undo d.
func (e *Executor) Capture(ctx context.Context, d Descriptor) (*Backup, error) {
	var (
		b   *Backup
		err error
	)
	switch d.Kind {
	case KindWrite, KindUpdate, KindCopy:
		b, err = e.snapshot(ctx, d.Target(), false)
	case KindDelete:
		return e.snapshot(ctx, d.Path, true)
	case KindMove:
		b, err = e.snapshot(ctx, d.Destination, false)
		if b != nil {
			b.Source = d.Path
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
	if err != nil || b.Existed {
		return b, err
	}

	b.CreatedDirs, err = e.missingParents(ctx, d.Target())
	if err != nil {
		return nil, err
	}
	return b, nil
}

// missingParents lists the ancestors of p that do not exist, deepest
// first. The primitives create them implicitly.
func (e *Executor) missingParents(ctx context.Context, p string) ([]string, error) {
	var dirs []string
	for dir := path.Dir(storage.Clean(p)); dir != "/"; dir = path.Dir(dir) {
		_, err := e.fs.Stat(ctx, dir)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// snapshot records whether p exists, and its content and mode if so.
// Directories are only acceptable when allowDir is set.
func (e *Executor) snapshot(ctx context.Context, p string, allowDir bool) (*Backup, error) {
	info, err := e.fs.Stat(ctx, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Backup{}, nil
		}
		return nil, err
	}

	b := &Backup{Existed: true, Mode: info.Mode().Perm()}
	if info.IsDir() {
		if !allowDir {
			return nil, &storage.PathError{Op: "backup", Path: p, Err: storage.ErrIsDirectory}
		}
		b.IsDir = true
		return b, nil
	}

	content, err := e.fs.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	b.Content = content
	return b, nil
}

// Apply runs the primitive for d. The cache entries of every touched path
// are invalidated after the primitive returns, whether or not it failed.
func (e *Executor) Apply(ctx context.Context, d Descriptor) error {
	start := time.Now()
	err := e.apply(ctx, d)
	e.invalidate(d.Touched()...)
	e.observe(d, PhaseApply, err, start)
	return err
}

func (e *Executor) apply(ctx context.Context, d Descriptor) error {
	switch d.Kind {
	case KindWrite:
		return e.fs.Write(ctx, d.Path, d.Content, d.Mode)
	case KindUpdate:
		next, err := e.updated(ctx, d)
		if err != nil {
			return err
		}
		return e.fs.Write(ctx, d.Path, next, d.Mode)
	case KindDelete:
		return e.fs.Delete(ctx, d.Path)
	case KindMove:
		return e.fs.Move(ctx, d.Path, d.Destination)
	case KindCopy:
		return e.fs.Copy(ctx, d.Path, d.Destination)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
}

// updated computes the post-update content of d.Path.
func (e *Executor) updated(ctx context.Context, d Descriptor) ([]byte, error) {
	current, err := e.fs.Read(ctx, d.Path)
	if err != nil {
		return nil, err
	}
	if d.Old == "" {
		return d.Content, nil
	}
	if !bytes.Contains(current, []byte(d.Old)) {
		return nil, &storage.PathError{Op: "update", Path: d.Path, Err: ErrNoMatch}
	}
	return bytes.Replace(current, []byte(d.Old), []byte(d.New), 1), nil
}

// Revert undoes an applied d using b. Touched cache entries are
// invalidated after the inverse runs.
func (e *Executor) Revert(ctx context.Context, d Descriptor, b *Backup) error {
	if b == nil {
		return fmt.Errorf("revert %s: %w", d, ErrNoBackup)
	}

	start := time.Now()
	err := e.revert(ctx, d, b)
	e.invalidate(d.Touched()...)
	e.observe(d, PhaseRevert, err, start)
	return err
}

func (e *Executor) revert(ctx context.Context, d Descriptor, b *Backup) error {
	switch d.Kind {
	case KindWrite, KindUpdate, KindCopy:
		if err := e.restore(ctx, d.Target(), b); err != nil {
			return err
		}
	case KindDelete:
		if b.IsDir {
			return e.fs.Mkdir(ctx, d.Path, b.Mode)
		}
		return e.fs.Write(ctx, d.Path, b.Content, b.Mode)
	case KindMove:
		if err := e.fs.Move(ctx, d.Destination, b.Source); err != nil {
			return err
		}
		if b.Existed {
			return e.fs.Write(ctx, d.Destination, b.Content, b.Mode)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
	return e.removeDirs(ctx, b.CreatedDirs)
}

// removeDirs deletes dirs in order. A directory that gained other entries
// since it was created stays, and so do its ancestors.
func (e *Executor) removeDirs(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		err := e.fs.Delete(ctx, dir)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
		case errors.Is(err, storage.ErrNotEmpty):
			return nil
		default:
			return err
		}
	}
	return nil
}

// restore puts p back to the state in b. A target that did not exist is
// removed; one that is already gone counts as restored.
func (e *Executor) restore(ctx context.Context, p string, b *Backup) error {
	if b.Existed {
		return e.fs.Write(ctx, p, b.Content, b.Mode)
	}
	err := e.fs.Delete(ctx, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Check predicts whether Apply would succeed, without mutating anything.
func (e *Executor) Check(ctx context.Context, d Descriptor) error {
	start := time.Now()
	err := e.check(ctx, d)
	e.observe(d, PhaseCheck, err, start)
	return err
}

func (e *Executor) check(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	switch d.Kind {
	case KindWrite:
		info, err := e.fs.Stat(ctx, d.Path)
		if err == nil && info.IsDir() {
			return &storage.PathError{Op: "write", Path: d.Path, Err: storage.ErrIsDirectory}
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	case KindUpdate:
		if _, err := e.existingFile(ctx, "update", d.Path); err != nil {
			return err
		}
		if d.Old == "" {
			return nil
		}
		current, err := e.fs.Read(ctx, d.Path)
		if err != nil {
			return err
		}
		if !bytes.Contains(current, []byte(d.Old)) {
			return &storage.PathError{Op: "update", Path: d.Path, Err: ErrNoMatch}
		}
		return nil
	case KindDelete:
		info, err := e.fs.Stat(ctx, d.Path)
		if err != nil || !info.IsDir() {
			return err
		}
		entries, err := e.fs.ReadDir(ctx, d.Path)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return &storage.PathError{Op: "delete", Path: d.Path, Err: storage.ErrNotEmpty}
		}
		return nil
	case KindMove:
		_, err := e.fs.Stat(ctx, d.Path)
		return err
	case KindCopy:
		_, err := e.existingFile(ctx, "copy", d.Path)
		return err
	}
	return nil
}

func (e *Executor) existingFile(ctx context.Context, op, p string) (fs.FileInfo, error) {
	info, err := e.fs.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &storage.PathError{Op: op, Path: p, Err: storage.ErrIsDirectory}
	}
	return info, nil
}

// Read returns the content of p, serving it from the operation cache when
// present. A read that races with a mutation of p is returned to the
// caller but not cached.
func (e *Executor) Read(ctx context.Context, p string) ([]byte, error) {
	abs := e.fs.Abs(p)
	if data, ok := e.cache.GetFile(abs); ok {
		return data, nil
	}

	token := e.cache.Token()
	data, err := e.fs.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	e.cache.SetFileIfFresh(token, abs, data)
	return data, nil
}

// Stat returns file info for p.
func (e *Executor) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	return e.fs.Stat(ctx, p)
}

func (e *Executor) invalidate(paths ...string) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		abs[i] = e.fs.Abs(p)
	}
	e.cache.InvalidatePaths(abs...)
}

func (e *Executor) observe(d Descriptor, phase string, err error, start time.Time) {
	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordMutation(string(d.Kind), phase, err, elapsed)
	}

	if err != nil {
		e.log.Debug("mutation failed",
			zap.String("phase", phase),
			zap.String("kind", string(d.Kind)),
			logging.Path(d.Path),
			zap.String("destination", d.Destination),
			zap.Error(err),
		)
		return
	}
	e.log.Debug("mutation",
		zap.String("phase", phase),
		zap.String("kind", string(d.Kind)),
		logging.Path(d.Path),
		zap.Duration("duration", elapsed),
	)
}
