package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/repositories"
	"github.com/ecwilsonaz/plexsage/internal/services"
	"github.com/ecwilsonaz/plexsage/internal/shared"
	"golang.org/x/time/rate"
)

// Options contains sync tuning knobs.
type Options struct {
	BatchSize    int           // Tracks per remote fetch (default 1000)
	BatchTimeout time.Duration // Per-batch fetch timeout (default 30s)
	StaleAfter   time.Duration // Cache age that triggers a refresh (default 24h)
	RateLimit    float64       // Remote requests per second (default 5, <0 disables)
}

// Orchestrator drives the cache sync state machine.
//
// At most one sync is active at any time; a concurrent attempt is rejected
// with [shared.ErrSyncInProgress] rather than queued. All failures abort
// without mutating the committed snapshot.
type Orchestrator struct {
	repo   *repositories.CacheRepository
	source services.MediaSource
	logger *log.Logger

	batchSize    int
	batchTimeout time.Duration
	staleAfter   time.Duration
	limiter      *rate.Limiter

	progress *guardedProgress
}

// NewOrchestrator creates an Orchestrator over the given cache and source.
func NewOrchestrator(repo *repositories.CacheRepository, source services.MediaSource, logger *log.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 30 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 24 * time.Hour
	}

	var limiter *rate.Limiter
	if opts.RateLimit == 0 {
		opts.RateLimit = 5.0
	}
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Orchestrator{
		repo:         repo,
		source:       source,
		logger:       logger.With("component", "sync"),
		batchSize:    opts.BatchSize,
		batchTimeout: opts.BatchTimeout,
		staleAfter:   opts.StaleAfter,
		limiter:      limiter,
		progress:     newGuardedProgress(),
	}
}

// Sync runs a blocking sync to completion. Returns
// [shared.ErrSyncInProgress] if another sync is already active.
func (o *Orchestrator) Sync(ctx context.Context) error {
	if !o.progress.acquire(false) {
		return shared.ErrSyncInProgress
	}
	return o.run(ctx)
}

// SyncInBackground starts a sync on its own goroutine and returns
// immediately. The sync runs on a background context, so it proceeds to
// completion or failure regardless of what happens to the initiating
// client. Returns [shared.ErrSyncInProgress] if one is already active.
func (o *Orchestrator) SyncInBackground() error {
	if !o.progress.acquire(true) {
		return shared.ErrSyncInProgress
	}

	go func() {
		if err := o.run(context.Background()); err != nil {
			o.logger.Error("background sync failed", "error", err)
		}
	}()

	return nil
}

// Trigger services an explicit sync request: background when the cache
// already has data, blocking otherwise. Reports whether the sync ran (or
// started) in the background.
func (o *Orchestrator) Trigger(ctx context.Context) (background bool, err error) {
	state, err := o.repo.SyncState()
	if err != nil {
		return false, err
	}

	if state.TrackCount > 0 {
		return true, o.SyncInBackground()
	}
	return false, o.Sync(ctx)
}

// EnsureFresh applies the load-time triggers: an empty cache forces a
// blocking sync, a stale one starts a background refresh, and a fresh one
// does nothing.
func (o *Orchestrator) EnsureFresh(ctx context.Context) error {
	state, err := o.repo.SyncState()
	if err != nil {
		return err
	}

	switch {
	case state.TrackCount == 0:
		o.logger.Info("cache empty, running blocking sync")
		return o.Sync(ctx)
	case state.IsStale(o.staleAfter):
		o.logger.Info("cache stale, starting background refresh", "last_sync", state.LastSyncAt)
		if err := o.SyncInBackground(); err != nil && !errors.Is(err, shared.ErrSyncInProgress) {
			return err
		}
		return nil
	default:
		return nil
	}
}

// run performs the sync. The in-flight flag must already be held.
func (o *Orchestrator) run(ctx context.Context) error {
	start := time.Now()
	defer o.progress.release()

	fail := func(err error) error {
		o.progress.fail(err)
		o.logger.Error("sync aborted", "error", err)
		return err
	}

	identity, err := o.source.Identity(ctx)
	if err != nil {
		return fail(err)
	}

	state, err := o.repo.SyncState()
	if err != nil {
		return fail(err)
	}

	if state.ServerID != "" && state.ServerID != identity {
		o.logger.Warn("media server identity changed, clearing cache",
			"cached", state.ServerID, "current", identity)
		if err := o.repo.Clear(); err != nil {
			return fail(err)
		}
	}

	o.progress.set(FetchingMetadata, 0, 0)
	total, err := o.source.TotalCount(ctx)
	if err != nil {
		return fail(err)
	}

	o.logger.Info("starting library sync", "source", o.source.Name(), "total", total)
	o.progress.set(FetchingEntries, 0, total)

	syncedAt := time.Now().UTC()
	entries := make([]models.Track, 0, total)

	for offset := 0; offset < total; offset += o.batchSize {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return fail(fmt.Errorf("%w: %v", shared.ErrRemoteUnreachable, err))
			}
		}

		batch, err := o.fetchBatch(ctx, offset)
		if err != nil {
			return fail(err)
		}

		for _, raw := range batch {
			if raw.RatingKey == "" {
				o.logger.Warn("skipping record without rating key", "title", raw.Title, "artist", raw.Artist)
				continue
			}
			entries = append(entries, transformTrack(raw, syncedAt))
		}

		o.progress.set(FetchingEntries, len(entries), total)
		o.logger.Debug("fetched batch", "offset", offset, "have", len(entries), "total", total)
	}

	o.progress.set(Processing, len(entries), total)

	if err := o.repo.ReplaceAll(entries); err != nil {
		return fail(err)
	}

	completedAt := time.Now().UTC()
	newState := models.SyncState{
		ServerID:       identity,
		LastSyncAt:     &completedAt,
		TrackCount:     len(entries),
		SyncDurationMS: time.Since(start).Milliseconds(),
	}
	if err := o.repo.SetSyncState(newState); err != nil {
		return fail(err)
	}

	o.progress.set(Processing, len(entries), len(entries))
	o.logger.Info("sync complete", "tracks", len(entries), "duration", time.Since(start))

	return nil
}

// fetchBatch fetches one page with the per-batch timeout. A timed-out batch
// is retried exactly once; a second timeout surfaces as the remote being
// unreachable and aborts the whole sync.
func (o *Orchestrator) fetchBatch(ctx context.Context, offset int) ([]services.RawTrack, error) {
	attempt := func() ([]services.RawTrack, error) {
		batchCtx, cancel := context.WithTimeout(ctx, o.batchTimeout)
		defer cancel()
		return o.source.FetchBatch(batchCtx, offset, o.batchSize)
	}

	batch, err := attempt()
	if err == nil {
		return batch, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	o.logger.Warn("batch timed out, retrying once", "offset", offset)
	batch, err = attempt()
	if err == nil {
		return batch, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w at offset %d after retry", shared.ErrRemoteUnreachable, shared.ErrBatchTimeout, offset)
	}
	return nil, err
}

// transformTrack converts a raw remote record into a cached track,
// deriving the live-recording flag. Dirty remote metadata is sanitized
// here rather than rejected: an implausible year or rating is dropped and
// an empty title gets a placeholder, so one bad tag cannot abort a sync.
func transformTrack(raw services.RawTrack, syncedAt time.Time) models.Track {
	title := raw.Title
	if title == "" {
		title = "Unknown Title"
	}

	year := raw.Year
	if year != nil && (*year < 1900 || *year > 2100) {
		year = nil
	}

	rating := raw.UserRating
	if rating != nil && (*rating < 0 || *rating > 10) {
		rating = nil
	}

	return models.Track{
		RatingKey:  raw.RatingKey,
		Title:      title,
		Artist:     raw.Artist,
		Album:      raw.Album,
		DurationMS: raw.DurationMS,
		Year:       year,
		Genres:     raw.Genres,
		UserRating: rating,
		IsLive:     IsLiveRecording(raw.Title, raw.Album),
		SyncedAt:   syncedAt,
	}
}

// Status assembles the polling payload from the persisted sync state and
// the transient progress record.
func (o *Orchestrator) Status() (models.LibraryStatus, error) {
	state, err := o.repo.SyncState()
	if err != nil {
		return models.LibraryStatus{}, err
	}

	snap := o.progress.snapshot()

	status := models.LibraryStatus{
		TrackCount: state.TrackCount,
		SyncedAt:   state.LastSyncAt,
		IsSyncing:  snap.active,
		Error:      snap.lastError,
	}

	if snap.active {
		status.SyncProgress = &models.SyncProgress{
			Phase:   snap.phase.String(),
			Current: snap.current,
			Total:   snap.total,
		}
	}

	return status, nil
}

// State reports the orchestrator's position in the sync state machine.
func (o *Orchestrator) State() (State, error) {
	state, err := o.repo.SyncState()
	if err != nil {
		return Unsynced, err
	}

	snap := o.progress.snapshot()

	switch {
	case snap.active && snap.background:
		return SyncingBackground, nil
	case snap.active:
		return SyncingBlocking, nil
	case state.TrackCount == 0:
		return Unsynced, nil
	case snap.lastError != "":
		return StateError, nil
	default:
		return Synced, nil
	}
}
