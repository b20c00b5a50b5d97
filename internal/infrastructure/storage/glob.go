package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/util"
)

// Glob returns the files matching a doublestar pattern such as
// "/docs/**/*.md", as cleaned absolute paths in lexical order. Directories
// are never returned.
func (f *FS) Glob(ctx context.Context, pattern string) ([]string, error) {
	pattern = Clean(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %s", doublestar.ErrBadPattern, pattern)
	}

	base, _ := doublestar.SplitPattern(pattern)
	defer f.rlock()()

	var matches []string
	err := util.Walk(f.bfs, base, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		name := Clean(p)
		if ok, _ := doublestar.Match(pattern, name); ok {
			matches = append(matches, name)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("glob", pattern, err)
	}

	sort.Strings(matches)
	return matches, nil
}
