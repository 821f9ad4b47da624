package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ecwilsonaz/plexsage/internal/repositories"
)

// LibraryStatus prints the cache's sync state.
func (r *Runner) LibraryStatus(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	repo := repositories.NewCacheRepository(db)
	orchestrator, err := r.orchestrator(repo)
	if err != nil {
		return err
	}

	status, err := orchestrator.Status()
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("%s\n", styles.title.Render("Library"))
	r.writePlain("Tracks: %d\n", status.TrackCount)

	switch {
	case status.IsSyncing && status.SyncProgress != nil:
		r.writePlain("%s %s (%d/%d)\n", styles.warn.Render("Syncing:"),
			status.SyncProgress.Phase, status.SyncProgress.Current, status.SyncProgress.Total)
	case status.SyncedAt != nil:
		r.writePlain("Last sync: %s\n", status.SyncedAt.Local().Format(time.RFC1123))
	default:
		r.writePlain("%s\n", styles.warn.Render("Never synced"))
	}

	if status.Error != "" {
		r.writePlain("%s %s\n", styles.err.Render("Last sync error:"), status.Error)
	}

	return nil
}

// LibrarySync runs a full library sync and waits for it to finish.
func (r *Runner) LibrarySync(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	repo := repositories.NewCacheRepository(db)
	orchestrator, err := r.orchestrator(repo)
	if err != nil {
		return err
	}

	r.writePlain("Syncing library...\n")

	// Poll progress while the sync runs so long libraries show movement.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if status, err := orchestrator.Status(); err == nil && status.SyncProgress != nil {
					r.writePlain("  %s: %d/%d\n", status.SyncProgress.Phase,
						status.SyncProgress.Current, status.SyncProgress.Total)
				}
			}
		}
	}()

	start := time.Now()
	err = orchestrator.Sync(ctx)
	close(done)

	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status, err := orchestrator.Status()
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	r.writePlain("%s %d tracks in %s\n", styles.ok.Render("✓ Synced"),
		status.TrackCount, time.Since(start).Round(time.Second))
	return nil
}

// LibraryClear wipes the cached tracks and sync state.
func (r *Runner) LibraryClear(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	repo := repositories.NewCacheRepository(db)
	if err := repo.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.writePlain("%s\n", styles.ok.Render("✓ Cache cleared"))
	return nil
}

// LibraryGenres lists the distinct genres in the cache.
func (r *Runner) LibraryGenres(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	genres, err := repositories.NewCacheRepository(db).Genres()
	if err != nil {
		return fmt.Errorf("failed to list genres: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(genres, true)
	}
	for _, g := range genres {
		r.writePlain("%s\n", g)
	}
	return nil
}

// LibraryDecades lists the distinct decades in the cache.
func (r *Runner) LibraryDecades(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	decades, err := repositories.NewCacheRepository(db).Decades()
	if err != nil {
		return fmt.Errorf("failed to list decades: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(decades, true)
	}
	for _, d := range decades {
		r.writePlain("%s\n", d)
	}
	return nil
}

// libraryCommand handles cache inspection and sync operations
func libraryCommand(r *Runner) *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output as JSON",
	}

	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Inspect and sync the local library cache",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show cache size and sync state",
				Flags:  []cli.Flag{jsonFlag},
				Action: r.LibraryStatus,
			},
			{
				Name:   "sync",
				Usage:  "Sync the library cache from the media server",
				Action: r.LibrarySync,
			},
			{
				Name:   "clear",
				Usage:  "Clear all cached tracks and sync state",
				Action: r.LibraryClear,
			},
			{
				Name:   "genres",
				Usage:  "List genres present in the cache",
				Flags:  []cli.Flag{jsonFlag},
				Action: r.LibraryGenres,
			},
			{
				Name:   "decades",
				Usage:  "List decades present in the cache",
				Flags:  []cli.Flag{jsonFlag},
				Action: r.LibraryDecades,
			},
		},
	}
}
