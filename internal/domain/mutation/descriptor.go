package mutation

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind names one of the supported mutations.
type Kind string

const (
	KindWrite  Kind = "write"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindMove   Kind = "move"
	KindCopy   Kind = "copy"
)

// Kinds lists every valid Kind in a stable order.
var Kinds = []Kind{KindWrite, KindUpdate, KindDelete, KindMove, KindCopy}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWrite, KindUpdate, KindDelete, KindMove, KindCopy:
		return true
	}
	return false
}

var (
	// ErrInvalidDescriptor is returned for descriptors that fail
	// validation. No I/O is performed.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrNoMatch is returned when an update's Old text does not occur in
	// the target file.
	ErrNoMatch = fmt.Errorf("text to replace not found: %w", fs.ErrNotExist)

	// ErrNoBackup is returned when a revert is requested for a descriptor
	// whose prior state was never captured.
	ErrNoBackup = errors.New("no backup captured")
)

// Descriptor is a single reversible filesystem mutation.
type Descriptor struct {
	Kind        Kind   `json:"kind"`
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`

	// Content is the full body for write, and for update when Old is empty.
	Content []byte `json:"-"`

	// Old and New drive an in-place update: the first occurrence of Old is
	// replaced by New.
	Old string `json:"old,omitempty"`
	New string `json:"new,omitempty"`

	// Mode is the permission to apply on write. Zero keeps the existing
	// mode, or uses the default for a new file.
	Mode fs.FileMode `json:"mode,omitempty"`

	// Backup is the prior state, captured before the mutation runs.
	Backup *Backup `json:"-"`
}

// Backup is the prior state needed to undo a Descriptor.
//
// For write, update and copy it describes the target (Path, or Destination
// for copy). For delete it describes Path. For move it records the source
// path and the destination's prior state.
type Backup struct {
	Existed bool        `json:"existed"`
	IsDir   bool        `json:"is_dir,omitempty"`
	Content []byte      `json:"-"`
	Mode    fs.FileMode `json:"mode,omitempty"`
	Source  string      `json:"source,omitempty"`

	// CreatedDirs are the target's ancestors that did not exist yet,
	// deepest first. Revert removes them once they are empty again.
	CreatedDirs []string `json:"created_dirs,omitempty"`
}

// Validate checks the descriptor's shape.
func (d Descriptor) Validate() error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
	if d.Path == "" {
		return fmt.Errorf("%w: %s requires a path", ErrInvalidDescriptor, d.Kind)
	}
	switch d.Kind {
	case KindMove, KindCopy:
		if d.Destination == "" {
			return fmt.Errorf("%w: %s requires a destination", ErrInvalidDescriptor, d.Kind)
		}
	case KindUpdate:
		if d.Old == "" && d.New != "" {
			return fmt.Errorf("%w: update with new text requires old text", ErrInvalidDescriptor)
		}
	}
	return nil
}

// Target returns the path whose content the mutation changes.
func (d Descriptor) Target() string {
	if d.Kind == KindCopy || d.Kind == KindMove {
		return d.Destination
	}
	return d.Path
}

// Touched returns every path whose content may change.
func (d Descriptor) Touched() []string {
	switch d.Kind {
	case KindMove:
		return []string{d.Path, d.Destination}
	case KindCopy:
		return []string{d.Destination}
	default:
		return []string{d.Path}
	}
}

func (d Descriptor) String() string {
	if d.Destination != "" {
		return fmt.Sprintf("%s %s -> %s", d.Kind, d.Path, d.Destination)
	}
	return fmt.Sprintf("%s %s", d.Kind, d.Path)
}
