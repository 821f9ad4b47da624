package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/ecwilsonaz/plexsage/internal/repositories"
	"github.com/ecwilsonaz/plexsage/internal/server"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
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
	pipeline, err := r.pipeline(repo)
	if err != nil {
		return err
	}

	// Kick off a blocking first sync or a background refresh of a stale
	// cache before taking traffic. Failures degrade to an empty/stale
	// cache; the sync endpoint stays available for retries.
	if err := orchestrator.EnsureFresh(ctx); err != nil {
		r.logger.Warn("initial sync failed, serving existing cache", "error", err)
	}

	handler := server.NewAPIHandler(repo, orchestrator, pipeline, r.config.LLM.MaxTracksToAI, r.logger)
	router := server.NewAPIRouter(handler, r.logger)

	serveCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Serve(serveCtx, r.config.Server, router, r.logger)
}

// serveCommand runs the HTTP API server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API server",
		Action: r.Serve,
	}
}
