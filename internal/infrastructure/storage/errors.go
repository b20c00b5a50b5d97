package storage

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrIsDirectory is returned when a file operation targets a directory.
var ErrIsDirectory = errors.New("is a directory")

// ErrNotEmpty is returned when deleting a directory that still has
// entries. It classifies as KindAlreadyExists.
var ErrNotEmpty = fmt.Errorf("directory not empty: %w", fs.ErrExist)

// Kind classifies an I/O failure so callers can decide whether to retry,
// abandon, or reconcile.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindAlreadyExists    Kind = "already_exists"
	KindIsDirectory      Kind = "is_directory"
	KindIO               Kind = "io"
)

// PathError records a failed primitive and the path it failed on. The
// path is the caller-facing path, not the host path under the root.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Kind reports the failure class of the wrapped error.
func (e *PathError) Kind() Kind {
	return KindOf(e.Err)
}

// KindOf classifies any error by the standard fs sentinels it wraps.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, ErrIsDirectory):
		return KindIsDirectory
	default:
		return KindIO
	}
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Op: op, Path: path, Err: err}
}
