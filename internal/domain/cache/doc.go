// Package cache provides the bounded cache and the operation cache built
// on it.
//
// Cache[K, V] evicts the least recently used entry when full and expires
// entries whose sliding TTL elapsed; Get and Has both refresh recency and
// TTL.
//
// OperationCache keys filesystem content as "file:" + absolute path. The
// mutation path calls InvalidatePath (both paths for a move) before it
// reports success, and read-through fills go through SetFileIfFresh so a
// read that raced with a mutation never stores superseded content.
package cache
