// Package models defines domain entities for the plexsage playlist generation service.
//
// The package contains three categories of types:
//
// 1. Cached catalog entities, owned by the cache repository:
//   - [Track] : One cached library track mirrored from the media server
//   - [SyncState] : Singleton record describing the last completed sync
//
// 2. Request/response value objects:
//   - [FilterCriteria] : Structured filters applied before any LLM call
//   - [FilterPreview] : Match count plus cost estimate for a filter set
//   - [GeneratedPlaylist] : Ordered resolved tracks with token accounting
//
// 3. Transient generation structures:
//   - [Selection] : One (artist, title) pair returned by the LLM
//   - [MatchResult] : A selection resolved to a cached track, or unresolved
//
// Tracks are identified solely by their rating key; every other field may
// change between syncs.
package models
