// Package paths resolves caller paths against the storage root.
//
// # Directory Structure
//
//	<root>/
//	  ├── apps/
//	  │   └── <app_id>/   (relative paths of an app land here)
//	  └── ...             (everything else is addressed absolutely)
//
// # Usage
//
//	p, err := paths.Resolve("notes/todo.txt", "editor") // /apps/editor/notes/todo.txt
//	p, err = paths.Resolve("/shared/a.txt", "editor")   // /shared/a.txt
package paths
