// Package repositories provides the persistence layer for the local library cache.
//
// CacheRepository owns the tracks, track_genres, and sync_state tables. Cached
// track rows are only ever written through ReplaceAll, which stages a complete
// new snapshot in side tables and swaps it in within a single transaction, so
// concurrent readers never observe a half-synced library.
package repositories
