// Package mutation defines the reversible filesystem mutation and the
// executor that applies, reverts and dry-runs it.
//
// A Descriptor is a closed variant over Kind. The Executor captures a
// Backup before a mutation, applies it through storage.Primitives and
// invalidates the operation cache for every touched path. Revert runs the
// inverse:
//
//	write, update, copy  restore prior content and mode, or remove the target
//	delete               recreate the file, or the empty directory
//	move                 move back, then restore an overwritten destination
package mutation
