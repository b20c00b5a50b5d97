// Package batch runs many independent mutations under a concurrency
// ceiling.
//
// Operations are split into chunks of the batch's concurrency, in input
// order. Chunks run sequentially and every operation inside a chunk runs
// in its own goroutine; the next chunk starts only after the whole chunk
// settles. A failing item is recorded and never cancels its siblings, so
// the set of successful and failed items does not depend on the
// concurrency.
package batch
