package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/ecwilsonaz/plexsage/internal/formatter"
	"github.com/ecwilsonaz/plexsage/internal/generator"
	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/repositories"
)

func requestFromFlags(r *Runner, cmd *cli.Command) generator.Request {
	maxTracks := cmd.Int("max-tracks")
	if maxTracks == 0 {
		maxTracks = r.config.LLM.MaxTracksToAI
	}

	return generator.Request{
		Prompt: cmd.String("prompt"),
		Criteria: models.FilterCriteria{
			Genres:      cmd.StringSlice("genre"),
			Decades:     cmd.StringSlice("decade"),
			MinRating:   cmd.Int("min-rating"),
			ExcludeLive: !cmd.Bool("include-live"),
		},
		TrackCount:    cmd.Int("count"),
		MaxTracksToAI: maxTracks,
	}
}

// Preview reports the filter match count and cost estimate without calling the LLM.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	pipeline, err := r.pipeline(repositories.NewCacheRepository(db))
	if err != nil {
		return err
	}

	preview, err := pipeline.Preview(requestFromFlags(r, cmd))
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(preview, true)
	}

	r.writePlain("%s\n", styles.title.Render("Filter preview"))
	r.writePlain("Matching tracks: %d\n", preview.MatchingTracks)
	r.writePlain("Tracks to send: %d\n", preview.TracksToSend)
	r.writePlain("Estimated tokens: %d in / %d out\n", preview.EstimatedInputTokens, preview.EstimatedOutputTokens)
	r.writePlain("Estimated cost: $%.4f\n", preview.EstimatedCost)

	if preview.MatchingTracks == 0 {
		r.writePlain("%s\n", styles.warn.Render("No tracks match these filters."))
	}
	return nil
}

// Generate runs the full generation pipeline and prints or exports the playlist.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	pipeline, err := r.pipeline(repositories.NewCacheRepository(db))
	if err != nil {
		return err
	}

	r.writePlain("Generating playlist...\n")

	playlist, err := pipeline.Generate(ctx, requestFromFlags(r, cmd))
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if output := cmd.String("output"); output != "" {
		format, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		if err := formatter.WriteExport(playlist, format, output); err != nil {
			return err
		}
		r.writePlain("%s %s\n", styles.ok.Render("✓ Exported to"), output)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}

	r.writePlainln("%s", styles.title.Render(playlist.Title))
	if playlist.Narrative != "" {
		r.writePlain("%s\n\n", playlist.Narrative)
	}

	for i, track := range playlist.Tracks {
		r.writePlain("%2d. %s - %s\n", i+1, track.Artist, track.Title)
		if reason := playlist.TrackReasons[track.RatingKey]; reason != "" {
			r.writePlain("    %s\n", reason)
		}
	}

	if playlist.Unresolved > 0 {
		r.writePlainln("%s %d suggestions could not be matched to your library",
			styles.warn.Render("⚠"), playlist.Unresolved)
	}
	r.writePlainln("Tokens: %d in / %d out ($%.4f)",
		playlist.InputTokens, playlist.OutputTokens, playlist.EstimatedCost)

	return nil
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "genre",
			Aliases: []string{"g"},
			Usage:   "Filter by genre (repeatable, OR-matched)",
		},
		&cli.StringSliceFlag{
			Name:    "decade",
			Aliases: []string{"d"},
			Usage:   "Filter by decade like 1990s (repeatable, OR-matched)",
		},
		&cli.IntFlag{
			Name:  "min-rating",
			Usage: "Minimum user rating 0-10",
		},
		&cli.BoolFlag{
			Name:  "include-live",
			Usage: "Include live recordings",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Number of tracks to generate",
			Value:   generator.DefaultTrackCount,
		},
		&cli.IntFlag{
			Name:  "max-tracks",
			Usage: "Max candidate tracks to offer the LLM (0 = config default)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
	}
}

// previewCommand estimates filter reach and cost
func previewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "preview",
		Usage:  "Preview filter match count and LLM cost without generating",
		Flags:  filterFlags(),
		Action: r.Preview,
	}
}

// generateCommand runs the generation pipeline
func generateCommand(r *Runner) *cli.Command {
	flags := append(filterFlags(),
		&cli.StringFlag{
			Name:    "prompt",
			Aliases: []string{"p"},
			Usage:   "Free-text description of the playlist you want",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format: csv, markdown or text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the playlist to this file instead of stdout",
		},
	)

	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a playlist from your library with the LLM",
		Flags:   flags,
		Action:  r.Generate,
	}
}
