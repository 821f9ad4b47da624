package generator

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/repositories"
	"github.com/ecwilsonaz/plexsage/internal/services"
	"github.com/ecwilsonaz/plexsage/internal/shared"
	tu "github.com/ecwilsonaz/plexsage/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// In-memory SQLite gives every pooled connection its own database, so
	// pin the pool to a single connection.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func intp(v int) *int { return &v }

func seedLibrary(t *testing.T, repo *repositories.CacheRepository) {
	t.Helper()

	now := time.Now().UTC()
	tracks := []models.Track{
		{RatingKey: "1", Title: "Everlong", Artist: "Foo Fighters", Album: "The Colour and the Shape", DurationMS: 250000, Year: intp(1997), UserRating: intp(8), Genres: []string{"Alternative"}, SyncedAt: now},
		{RatingKey: "2", Title: "Karma Police", Artist: "Radiohead", Album: "OK Computer", DurationMS: 260000, Year: intp(1997), UserRating: intp(9), Genres: []string{"Alternative"}, SyncedAt: now},
		{RatingKey: "3", Title: "So What", Artist: "Miles Davis", Album: "Kind of Blue", DurationMS: 540000, Year: intp(1959), UserRating: intp(10), Genres: []string{"Jazz"}, SyncedAt: now},
		{RatingKey: "4", Title: "Wonderwall", Artist: "Oasis", Album: "Morning Glory", DurationMS: 258000, Year: intp(1995), UserRating: intp(6), Genres: []string{"Britpop"}, SyncedAt: now},
		{RatingKey: "5", Title: "1979", Artist: "The Smashing Pumpkins", Album: "Mellon Collie", DurationMS: 263000, Year: intp(1995), UserRating: intp(7), Genres: []string{"Alternative"}, SyncedAt: now},
	}

	if err := repo.ReplaceAll(tracks); err != nil {
		t.Fatalf("failed to seed library: %v", err)
	}
}

// scriptedLLM answers the generation call with selections and the narrative
// call with a title/liner JSON object.
func scriptedLLM(selections, narrative string) *tu.MockLLM {
	return &tu.MockLLM{
		ModelName: "gpt-4.1-mini",
		CompleteFunc: func(ctx context.Context, system, prompt string) (*services.LLMResponse, error) {
			if strings.Contains(system, "liner note") {
				return &services.LLMResponse{Content: narrative, Model: "gpt-4.1-mini", InputTokens: 200, OutputTokens: 80}, nil
			}
			return &services.LLMResponse{Content: selections, Model: "gpt-4.1-mini", InputTokens: 1234, OutputTokens: 567}, nil
		},
	}
}

func newTestPipeline(t *testing.T, llm services.LLMGateway) (*Pipeline, *repositories.CacheRepository) {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	repo := repositories.NewCacheRepository(db)
	pipeline := NewPipeline(
		NewFilterEngine(repo),
		NewSampler(rand.New(rand.NewSource(1))),
		NewCostEstimator(testPricing()),
		llm,
		shared.NewLogger(nil),
	)
	return pipeline, repo
}

func TestPreview(t *testing.T) {
	t.Run("CountsAndPricesWithoutLLMCall", func(t *testing.T) {
		llm := scriptedLLM("[]", "{}")
		p, repo := newTestPipeline(t, llm)
		seedLibrary(t, repo)

		preview, err := p.Preview(Request{
			Criteria:   models.FilterCriteria{Genres: []string{"Alternative"}},
			TrackCount: 25,
		})
		if err != nil {
			t.Fatalf("preview failed: %v", err)
		}

		if preview.MatchingTracks != 3 {
			t.Errorf("expected 3 matching tracks, got %d", preview.MatchingTracks)
		}
		if preview.TracksToSend != 3 {
			t.Errorf("expected 3 tracks to send, got %d", preview.TracksToSend)
		}
		if preview.EstimatedInputTokens != basePromptTokens+3*tokensPerTrack {
			t.Errorf("unexpected input tokens %d", preview.EstimatedInputTokens)
		}
		if preview.EstimatedOutputTokens != 25*tokensPerSuggestion {
			t.Errorf("unexpected output tokens %d", preview.EstimatedOutputTokens)
		}
		if preview.EstimatedCost <= 0 {
			t.Errorf("expected positive cost, got %v", preview.EstimatedCost)
		}
		if len(llm.Prompts) != 0 {
			t.Errorf("preview must not call the LLM, saw %d calls", len(llm.Prompts))
		}
	})

	t.Run("BudgetCapsTracksToSend", func(t *testing.T) {
		p, repo := newTestPipeline(t, scriptedLLM("[]", "{}"))
		seedLibrary(t, repo)

		preview, err := p.Preview(Request{MaxTracksToAI: 2})
		if err != nil {
			t.Fatalf("preview failed: %v", err)
		}

		if preview.MatchingTracks != 5 {
			t.Errorf("expected 5 matching tracks, got %d", preview.MatchingTracks)
		}
		if preview.TracksToSend != 2 {
			t.Errorf("expected budget-capped 2 tracks, got %d", preview.TracksToSend)
		}
	})
}

func TestGenerate(t *testing.T) {
	selections := `[
		{"artist": "Foo Fighters", "title": "Everlong", "reason": "Driving anthem."},
		{"artist": "The Smashing Pumpkins", "title": "1979", "reason": "Nostalgic pulse."},
		{"artist": "The Beatles", "title": "Yesterday", "reason": "Not in this library."}
	]`
	narrative := `{"title": "Static and Sparks", "narrative": "From 'Everlong' to '1979', wires hum."}`

	t.Run("ResolvesSelectionsToCachedTracks", func(t *testing.T) {
		p, repo := newTestPipeline(t, scriptedLLM(selections, narrative))
		seedLibrary(t, repo)

		playlist, err := p.Generate(context.Background(), Request{Prompt: "90s energy"})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		if len(playlist.Tracks) != 2 {
			t.Fatalf("expected 2 resolved tracks, got %d", len(playlist.Tracks))
		}
		if playlist.Tracks[0].RatingKey != "1" || playlist.Tracks[1].RatingKey != "5" {
			t.Errorf("unexpected track keys %q, %q", playlist.Tracks[0].RatingKey, playlist.Tracks[1].RatingKey)
		}
		if playlist.Unresolved != 1 {
			t.Errorf("expected 1 unresolved selection, got %d", playlist.Unresolved)
		}
		if playlist.TrackReasons["1"] != "Driving anthem." {
			t.Errorf("unexpected reason %q", playlist.TrackReasons["1"])
		}
	})

	t.Run("AccountsTokensAndCostFromUsage", func(t *testing.T) {
		p, repo := newTestPipeline(t, scriptedLLM(selections, narrative))
		seedLibrary(t, repo)

		playlist, err := p.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		if playlist.InputTokens != 1234 || playlist.OutputTokens != 567 {
			t.Errorf("expected usage 1234/567, got %d/%d", playlist.InputTokens, playlist.OutputTokens)
		}
		want := NewCostEstimator(testPricing()).Cost("gpt-4.1-mini", 1234, 567)
		if playlist.EstimatedCost != want {
			t.Errorf("expected cost %v, got %v", want, playlist.EstimatedCost)
		}
	})

	t.Run("TitleAndNarrativeFromSecondCall", func(t *testing.T) {
		p, repo := newTestPipeline(t, scriptedLLM(selections, narrative))
		seedLibrary(t, repo)

		playlist, err := p.Generate(context.Background(), Request{Prompt: "90s energy"})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		if !strings.HasPrefix(playlist.Title, "Static and Sparks - ") {
			t.Errorf("expected dated creative title, got %q", playlist.Title)
		}
		if !strings.Contains(playlist.Narrative, "Everlong") {
			t.Errorf("unexpected narrative %q", playlist.Narrative)
		}
	})

	t.Run("NarrativeFailureFallsBackToDatedTitle", func(t *testing.T) {
		llm := &tu.MockLLM{
			ModelName: "gpt-4.1-mini",
			CompleteFunc: func(ctx context.Context, system, prompt string) (*services.LLMResponse, error) {
				if strings.Contains(system, "liner note") {
					return nil, shared.ErrLLMRequest
				}
				return &services.LLMResponse{Content: selections, Model: "gpt-4.1-mini"}, nil
			},
		}
		p, repo := newTestPipeline(t, llm)
		seedLibrary(t, repo)

		playlist, err := p.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		if !strings.HasSuffix(playlist.Title, " Playlist") {
			t.Errorf("expected fallback title, got %q", playlist.Title)
		}
		if playlist.Narrative != "" {
			t.Errorf("expected empty narrative, got %q", playlist.Narrative)
		}
	})

	t.Run("EmptyCache", func(t *testing.T) {
		p, _ := newTestPipeline(t, scriptedLLM(selections, narrative))

		_, err := p.Generate(context.Background(), Request{})
		if !errors.Is(err, shared.ErrCacheEmpty) {
			t.Errorf("expected ErrCacheEmpty, got %v", err)
		}
	})

	t.Run("NoMatchingTracks", func(t *testing.T) {
		p, repo := newTestPipeline(t, scriptedLLM(selections, narrative))
		seedLibrary(t, repo)

		_, err := p.Generate(context.Background(), Request{
			Criteria: models.FilterCriteria{Genres: []string{"Zydeco"}},
		})
		if !errors.Is(err, shared.ErrNoMatches) {
			t.Errorf("expected ErrNoMatches, got %v", err)
		}
	})

	t.Run("ProseResponseIsRejected", func(t *testing.T) {
		p, repo := newTestPipeline(t, scriptedLLM("Sorry, I can't help with that.", narrative))
		seedLibrary(t, repo)

		_, err := p.Generate(context.Background(), Request{})
		if !errors.Is(err, shared.ErrBadLLMResponse) {
			t.Errorf("expected ErrBadLLMResponse, got %v", err)
		}
	})

	t.Run("FencedResponseIsAccepted", func(t *testing.T) {
		fenced := "```json\n" + selections + "\n```"
		p, repo := newTestPipeline(t, scriptedLLM(fenced, narrative))
		seedLibrary(t, repo)

		playlist, err := p.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(playlist.Tracks) != 2 {
			t.Errorf("expected 2 tracks from fenced JSON, got %d", len(playlist.Tracks))
		}
	})

	t.Run("TrackCountTruncatesResolved", func(t *testing.T) {
		many := `[
			{"artist": "Foo Fighters", "title": "Everlong"},
			{"artist": "Radiohead", "title": "Karma Police"},
			{"artist": "Oasis", "title": "Wonderwall"}
		]`
		p, repo := newTestPipeline(t, scriptedLLM(many, narrative))
		seedLibrary(t, repo)

		playlist, err := p.Generate(context.Background(), Request{TrackCount: 2})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(playlist.Tracks) != 2 {
			t.Errorf("expected playlist truncated to 2, got %d", len(playlist.Tracks))
		}
	})

	t.Run("SamplingBudgetLimitsPrompt", func(t *testing.T) {
		llm := scriptedLLM(selections, narrative)
		p, repo := newTestPipeline(t, llm)
		seedLibrary(t, repo)

		if _, err := p.Generate(context.Background(), Request{MaxTracksToAI: 3}); err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		if len(llm.Prompts) == 0 {
			t.Fatal("expected at least one LLM call")
		}
		offered := 0
		for _, line := range strings.Split(llm.Prompts[0], "\n") {
			if len(line) > 1 && line[0] >= '1' && line[0] <= '9' && strings.Contains(line, ". ") {
				offered++
			}
		}
		if offered != 3 {
			t.Errorf("expected 3 offered tracks in prompt, got %d", offered)
		}
	})
}
