package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/shared"
)

// CacheRepository implements the local library cache over SQLite.
//
// Reads are served from the committed snapshot at all times. Writes happen
// only through [CacheRepository.ReplaceAll] (full snapshot swap) and
// [CacheRepository.Clear].
type CacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new CacheRepository with the given database connection
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

const trackColumns = "rating_key, title, artist, album, duration_ms, year, user_rating, is_live, synced_at"

// ReplaceAll atomically replaces the entire cached track set with a new
// complete snapshot.
//
// The new snapshot is staged into side tables invisible to readers; only
// after every row has been written is the live table swapped in a single
// transaction. A failure at any point leaves the previously committed
// snapshot untouched and fully queryable.
func (r *CacheRepository) ReplaceAll(tracks []models.Track) error {
	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
		}
	}

	if err := r.createStaging(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}
	defer r.dropStaging()

	if err := r.fillStaging(tracks); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}

	if err := r.swapStaging(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}

	return nil
}

func (r *CacheRepository) createStaging() error {
	if err := r.dropStaging(); err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE tracks_staging (
			rating_key TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			year INTEGER,
			user_rating INTEGER,
			is_live INTEGER NOT NULL DEFAULT 0,
			synced_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE track_genres_staging (
			rating_key TEXT NOT NULL,
			position INTEGER NOT NULL,
			genre TEXT NOT NULL,
			PRIMARY KEY (rating_key, position)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}
	}

	return nil
}

func (r *CacheRepository) dropStaging() error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS tracks_staging",
		"DROP TABLE IF EXISTS track_genres_staging",
	} {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to drop staging table: %w", err)
		}
	}
	return nil
}

func (r *CacheRepository) fillStaging(tracks []models.Track) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin staging transaction: %w", err)
	}
	defer tx.Rollback()

	insertTrack, err := tx.Prepare(
		"INSERT INTO tracks_staging (" + trackColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer insertTrack.Close()

	insertGenre, err := tx.Prepare(
		"INSERT INTO track_genres_staging (rating_key, position, genre) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare genre insert: %w", err)
	}
	defer insertGenre.Close()

	for _, track := range tracks {
		_, err := insertTrack.Exec(
			track.RatingKey,
			track.Title,
			track.Artist,
			track.Album,
			track.DurationMS,
			nullableInt(track.Year),
			nullableInt(track.UserRating),
			track.IsLive,
			track.SyncedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to stage track %s: %w", track.RatingKey, err)
		}

		for i, genre := range track.Genres {
			if _, err := insertGenre.Exec(track.RatingKey, i, genre); err != nil {
				return fmt.Errorf("failed to stage genres for %s: %w", track.RatingKey, err)
			}
		}
	}

	return tx.Commit()
}

// swapStaging promotes the staged snapshot. This is the only moment readers
// can observe a change, and it is a single transaction.
func (r *CacheRepository) swapStaging() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin swap transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM track_genres",
		"DELETE FROM tracks",
		"INSERT INTO tracks SELECT * FROM tracks_staging",
		"INSERT INTO track_genres SELECT * FROM track_genres_staging",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to swap snapshot: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the number of cached tracks matching the criteria.
func (r *CacheRepository) Count(criteria models.FilterCriteria) (int, error) {
	where, args, err := buildFilterSQL(criteria)
	if err != nil {
		return 0, err
	}

	var count int
	query := "SELECT COUNT(*) FROM tracks t WHERE " + where
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	return count, nil
}

// Select returns all cached tracks matching the criteria, with genres
// attached, ordered by rating key for deterministic candidate positions.
func (r *CacheRepository) Select(criteria models.FilterCriteria) ([]models.Track, error) {
	where, args, err := buildFilterSQL(criteria)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + trackColumns + " FROM tracks t WHERE " + where + " ORDER BY CAST(t.rating_key AS INTEGER), t.rating_key"
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks, err := scanTracks(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachGenres(tracks); err != nil {
		return nil, err
	}

	return tracks, nil
}

// Get retrieves a single cached track by rating key, with genres attached.
// Returns nil when the track is not cached.
func (r *CacheRepository) Get(ratingKey string) (*models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks t WHERE t.rating_key = ?"
	rows, err := r.db.Query(query, ratingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query track: %w", err)
	}
	defer rows.Close()

	tracks, err := scanTracks(rows)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	if err := r.attachGenres(tracks); err != nil {
		return nil, err
	}

	return &tracks[0], nil
}

// SyncState returns the singleton sync state record.
func (r *CacheRepository) SyncState() (models.SyncState, error) {
	var state models.SyncState
	var serverID sql.NullString
	var lastSync sql.NullTime
	var duration sql.NullInt64

	err := r.db.QueryRow(
		"SELECT server_id, last_sync_at, track_count, sync_duration_ms FROM sync_state WHERE id = 1",
	).Scan(&serverID, &lastSync, &state.TrackCount, &duration)
	if err != nil {
		return state, fmt.Errorf("failed to read sync state: %w", err)
	}

	state.ServerID = serverID.String
	if lastSync.Valid {
		t := lastSync.Time
		state.LastSyncAt = &t
	}
	state.SyncDurationMS = duration.Int64

	return state, nil
}

// SetSyncState replaces the singleton sync state record.
func (r *CacheRepository) SetSyncState(state models.SyncState) error {
	_, err := r.db.Exec(
		"UPDATE sync_state SET server_id = ?, last_sync_at = ?, track_count = ?, sync_duration_ms = ? WHERE id = 1",
		state.ServerID,
		state.LastSyncAt,
		state.TrackCount,
		state.SyncDurationMS,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to write sync state: %v", shared.ErrStoreWrite, err)
	}
	return nil
}

// Clear removes every cached track and resets the sync state record.
// Used when the media server identity changes.
func (r *CacheRepository) Clear() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM track_genres",
		"DELETE FROM tracks",
		"UPDATE sync_state SET server_id = NULL, last_sync_at = NULL, track_count = 0, sync_duration_ms = NULL WHERE id = 1",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}
	return nil
}

// Genres lists every distinct genre in the cache, alphabetically.
func (r *CacheRepository) Genres() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT genre FROM track_genres ORDER BY genre COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, genre)
	}

	return genres, rows.Err()
}

// Decades lists every decade represented in the cache as labels like "1990s",
// most recent first.
func (r *CacheRepository) Decades() ([]string, error) {
	rows, err := r.db.Query(
		"SELECT DISTINCT (year / 10) * 10 AS decade FROM tracks WHERE year IS NOT NULL ORDER BY decade DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decades: %w", err)
	}
	defer rows.Close()

	var decades []string
	for rows.Next() {
		var start int
		if err := rows.Scan(&start); err != nil {
			return nil, fmt.Errorf("failed to scan decade: %w", err)
		}
		decades = append(decades, fmt.Sprintf("%ds", start))
	}

	return decades, rows.Err()
}

// buildFilterSQL converts filter criteria into a WHERE clause over the
// tracks table (aliased t). Genre matching goes through the track_genres
// association, OR within the set, case-insensitive.
func buildFilterSQL(criteria models.FilterCriteria) (string, []any, error) {
	conditions := []string{"1=1"}
	var args []any

	if criteria.ExcludeLive {
		conditions = append(conditions, "t.is_live = 0")
	}

	if criteria.MinRating > 0 {
		conditions = append(conditions, "t.user_rating >= ?")
		args = append(args, criteria.MinRating)
	}

	if len(criteria.Decades) > 0 {
		var decadeConds []string
		for _, decade := range criteria.Decades {
			start, end, err := models.DecadeRange(decade)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
			}
			decadeConds = append(decadeConds, "(t.year >= ? AND t.year <= ?)")
			args = append(args, start, end)
		}
		conditions = append(conditions, "("+strings.Join(decadeConds, " OR ")+")")
	}

	if len(criteria.Genres) > 0 {
		placeholders := make([]string, len(criteria.Genres))
		for i, genre := range criteria.Genres {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(genre))
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM track_genres g WHERE g.rating_key = t.rating_key AND lower(g.genre) IN ("+
				strings.Join(placeholders, ", ")+"))")
	}

	return strings.Join(conditions, " AND "), args, nil
}

func scanTracks(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		var track models.Track
		var year, rating sql.NullInt64

		err := rows.Scan(
			&track.RatingKey,
			&track.Title,
			&track.Artist,
			&track.Album,
			&track.DurationMS,
			&year,
			&rating,
			&track.IsLive,
			&track.SyncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}

		if year.Valid {
			v := int(year.Int64)
			track.Year = &v
		}
		if rating.Valid {
			v := int(rating.Int64)
			track.UserRating = &v
		}

		tracks = append(tracks, track)
	}

	return tracks, rows.Err()
}

// genreKeyChunk keeps each genre lookup well under SQLite's bind
// variable limit however large the selection is.
const genreKeyChunk = 500

// attachGenres populates Genres for the given tracks, preserving position order.
func (r *CacheRepository) attachGenres(tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	index := make(map[string]*models.Track, len(tracks))
	keys := make([]string, len(tracks))
	for i := range tracks {
		index[tracks[i].RatingKey] = &tracks[i]
		keys[i] = tracks[i].RatingKey
	}

	for start := 0; start < len(keys); start += genreKeyChunk {
		end := min(start+genreKeyChunk, len(keys))
		if err := r.attachGenreChunk(index, keys[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (r *CacheRepository) attachGenreChunk(index map[string]*models.Track, keys []string) error {
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = "?"
		args[i] = key
	}

	query := "SELECT rating_key, genre FROM track_genres WHERE rating_key IN (" +
		strings.Join(placeholders, ", ") + ") ORDER BY rating_key, position"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, genre string
		if err := rows.Scan(&key, &genre); err != nil {
			return fmt.Errorf("failed to scan genre row: %w", err)
		}
		if track, ok := index[key]; ok {
			track.Genres = append(track.Genres, genre)
		}
	}

	return rows.Err()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
