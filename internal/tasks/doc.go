// Package tasks implements the library sync orchestrator.
//
// The core abstraction is [Orchestrator], which drives the cache sync state
// machine over the cache repository using a remote media source. It owns the
// in-flight-sync flag, the transient progress record, and the paginated
// fetch loop with per-batch timeout and retry. Background syncs run on their
// own goroutine detached from any client connection; the status snapshot is
// the only way to observe completion.
package tasks
