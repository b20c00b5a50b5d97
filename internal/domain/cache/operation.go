package cache

import (
	"sync"
)

// FilePrefix namespaces filesystem-derived entries.
const FilePrefix = "file:"

// FileKey returns the cache key for an absolute path.
func FileKey(absPath string) string {
	return FilePrefix + absPath
}

// OperationCache is the path-keyed view over a bounded cache that the
// mutation path invalidates. Any write-class mutation on a path must call
// InvalidatePath for it before reporting success.
type OperationCache struct {
	entries *Cache[string, any]

	// mu orders invalidations against conditional fills so that a read
	// which started before an invalidation can never store its result
	// after it.
	mu    sync.Mutex
	epoch uint64
}

// NewOperationCache creates an operation cache bounded by cfg.
func NewOperationCache(cfg Config) *OperationCache {
	return &OperationCache{entries: New[string, any](cfg)}
}

// GetFile returns cached content for absPath.
func (c *OperationCache) GetFile(absPath string) ([]byte, bool) {
	v, ok := c.entries.Get(FileKey(absPath))
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	return clone(data), true
}

// HasFile reports whether content for absPath is cached.
func (c *OperationCache) HasFile(absPath string) bool {
	return c.entries.Has(FileKey(absPath))
}

// SetFile caches content for absPath unconditionally.
func (c *OperationCache) SetFile(absPath string, content []byte) {
	c.entries.Set(FileKey(absPath), clone(content))
}

// Token returns the current invalidation epoch. Capture it before
// reading from disk and hand it to SetFileIfFresh.
func (c *OperationCache) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// SetFileIfFresh caches content only if no invalidation happened since
// token was taken. It reports whether the entry was stored.
func (c *OperationCache) SetFileIfFresh(token uint64, absPath string, content []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != token {
		return false
	}
	c.entries.Set(FileKey(absPath), clone(content))
	return true
}

// InvalidatePath drops the entry for absPath.
func (c *OperationCache) InvalidatePath(absPath string) {
	c.InvalidatePaths(absPath)
}

// InvalidatePaths drops the entries for every path, e.g. both ends of a
// move.
func (c *OperationCache) InvalidatePaths(absPaths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for _, p := range absPaths {
		c.entries.Delete(FileKey(p))
	}
}

// Get returns a raw entry, e.g. a cached computation.
func (c *OperationCache) Get(key string) (any, bool) {
	return c.entries.Get(key)
}

// Set stores a raw entry.
func (c *OperationCache) Set(key string, value any) {
	c.entries.Set(key, value)
}

// Has reports whether a raw entry is present.
func (c *OperationCache) Has(key string) bool {
	return c.entries.Has(key)
}

// Delete removes a raw entry.
func (c *OperationCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	return c.entries.Delete(key)
}

// Clear drops every entry.
func (c *OperationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.entries.Clear()
}

// Stats returns the underlying cache counters.
func (c *OperationCache) Stats() Stats {
	return c.entries.Stats()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
