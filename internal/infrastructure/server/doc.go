// Package server assembles the service: storage, cache, engines, the
// filesystem provider, the registry and the gin router, plus a background
// loop that prunes finished transactions and batches.
package server
