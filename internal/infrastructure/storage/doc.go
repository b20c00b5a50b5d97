// Package storage provides the filesystem mutation primitives.
//
// Each primitive touches one path (two for move and copy), may fail with
// an I/O error, and is neither atomic across paths nor retried. Errors
// come back as *PathError carrying the caller-facing path, and still
// satisfy errors.Is(err, fs.ErrNotExist) and friends.
//
// Two backends are provided, both on go-billy:
//   - NewLocal(root): the local disk, chrooted to root
//   - NewMemory(): an in-memory filesystem for tests and dry environments,
//     safe for concurrent use behind a read/write lock
package storage
