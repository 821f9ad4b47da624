package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Track is one cached library track mirrored from the media server.
//
// RatingKey is the server's stable identifier and the only identity the
// cache relies on; title, artist, and every other field may change between
// syncs. IsLive is derived once at sync time from title/album text, never
// recomputed per query.
type Track struct {
	RatingKey  string    `json:"rating_key"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album"`
	DurationMS int       `json:"duration_ms"`
	Year       *int      `json:"year,omitempty"`
	Genres     []string  `json:"genres"`
	UserRating *int      `json:"user_rating,omitempty"`
	IsLive     bool      `json:"is_live"`
	SyncedAt   time.Time `json:"synced_at"`
}

// Validate checks the track's data and returns an error if invalid.
func (t Track) Validate() error {
	if t.RatingKey == "" {
		return fmt.Errorf("track missing rating key")
	}
	if t.Title == "" {
		return fmt.Errorf("track %s missing title", t.RatingKey)
	}
	if t.Year != nil && (*t.Year < 1900 || *t.Year > 2100) {
		return fmt.Errorf("track %s has implausible year %d", t.RatingKey, *t.Year)
	}
	if t.UserRating != nil && (*t.UserRating < 0 || *t.UserRating > 10) {
		return fmt.Errorf("track %s has rating %d outside 0-10", t.RatingKey, *t.UserRating)
	}
	return nil
}

// SyncState is the single persisted record describing the last completed
// sync. It is replaced wholesale on every successful sync and cleared
// entirely, alongside all cached tracks, when the server identity changes.
type SyncState struct {
	ServerID       string     `json:"server_id"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	TrackCount     int        `json:"track_count"`
	SyncDurationMS int64      `json:"sync_duration_ms"`
}

// IsStale reports whether the last completed sync is older than maxAge.
// An empty state (never synced) is always stale.
func (s SyncState) IsStale(maxAge time.Duration) bool {
	if s.LastSyncAt == nil {
		return true
	}
	return time.Since(*s.LastSyncAt) > maxAge
}

// SyncProgress is the transient, process-lifetime view of an active sync.
// It is never persisted and is discarded when the sync finishes.
type SyncProgress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// LibraryStatus is the polling payload exposed to the UI/CLI layer.
type LibraryStatus struct {
	TrackCount   int           `json:"track_count"`
	SyncedAt     *time.Time    `json:"synced_at,omitempty"`
	IsSyncing    bool          `json:"is_syncing"`
	SyncProgress *SyncProgress `json:"sync_progress,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// FilterCriteria narrows the cached library before any LLM call.
//
// Genre and decade sets OR-match within themselves and AND with the other
// conditions. A zero value matches the entire library.
type FilterCriteria struct {
	Genres      []string `json:"genres,omitempty"`
	Decades     []string `json:"decades,omitempty"`
	MinRating   int      `json:"min_rating,omitempty"`
	ExcludeLive bool     `json:"exclude_live"`
}

// DecadeRange converts a decade label like "1990s" (or a bare "1990") into
// its inclusive year range.
func DecadeRange(decade string) (start, end int, err error) {
	s := strings.TrimSuffix(decade, "s")
	start, err = strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid decade %q: %w", decade, err)
	}
	return start, start + 9, nil
}

// FilterPreview reports what a filter set would send to the LLM and what it
// would cost, before committing to a generation request.
type FilterPreview struct {
	MatchingTracks        int     `json:"matching_tracks"`
	TracksToSend          int     `json:"tracks_to_send"`
	EstimatedInputTokens  int     `json:"estimated_input_tokens"`
	EstimatedOutputTokens int     `json:"estimated_output_tokens"`
	EstimatedCost         float64 `json:"estimated_cost"`
}

// Selection is one (artist, title) pair returned by the LLM, with its
// optional one-line justification.
type Selection struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Album  string `json:"album,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// MatchResult pairs an LLM selection with the cached track it resolved to.
// Track is nil and Score below threshold when the selection is unresolved.
type MatchResult struct {
	Selection Selection `json:"selection"`
	Track     *Track    `json:"track,omitempty"`
	Score     float64   `json:"score"`
}

// Resolved reports whether the selection was claimed by a cached track.
func (m MatchResult) Resolved() bool { return m.Track != nil }

// GeneratedPlaylist is the final output of one generation request.
type GeneratedPlaylist struct {
	Title         string            `json:"title"`
	Narrative     string            `json:"narrative,omitempty"`
	Tracks        []Track           `json:"tracks"`
	Unresolved    int               `json:"unresolved"`
	TrackReasons  map[string]string `json:"track_reasons,omitempty"`
	InputTokens   int               `json:"input_tokens"`
	OutputTokens  int               `json:"output_tokens"`
	EstimatedCost float64           `json:"estimated_cost"`
}
