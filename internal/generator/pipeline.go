package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/services"
	"github.com/ecwilsonaz/plexsage/internal/shared"
)

// DefaultTrackCount is the playlist length used when a request leaves it unset.
const DefaultTrackCount = 25

// Request describes one playlist generation run.
type Request struct {
	// Prompt is the free-text description of the desired playlist. It is
	// passed to the LLM verbatim and never used for filtering.
	Prompt string

	// Criteria narrows the library before anything reaches the LLM.
	Criteria models.FilterCriteria

	// TrackCount is the requested playlist length. Zero means
	// DefaultTrackCount.
	TrackCount int

	// MaxTracksToAI caps how many candidates are offered to the LLM.
	// Zero or less means no cap.
	MaxTracksToAI int
}

func (r *Request) trackCount() int {
	if r.TrackCount <= 0 {
		return DefaultTrackCount
	}
	return r.TrackCount
}

// Pipeline runs the full generation flow: filter, sample, prompt the LLM,
// then resolve its free-text selections back to exact cached tracks.
type Pipeline struct {
	filter    *FilterEngine
	sampler   *Sampler
	resolver  *MatchResolver
	estimator *CostEstimator
	llm       services.LLMGateway
	logger    *log.Logger
}

func NewPipeline(filter *FilterEngine, sampler *Sampler, estimator *CostEstimator, llm services.LLMGateway, logger *log.Logger) *Pipeline {
	return &Pipeline{
		filter:    filter,
		sampler:   sampler,
		resolver:  NewMatchResolver(),
		estimator: estimator,
		llm:       llm,
		logger:    logger.With("component", "generator"),
	}
}

// Preview reports how many tracks the criteria match and what the resulting
// LLM call would cost, without calling the LLM. Generate uses the same
// estimator, so a preview's numbers hold for the run that follows it.
func (p *Pipeline) Preview(req Request) (*models.FilterPreview, error) {
	matching, err := p.filter.Count(req.Criteria)
	if err != nil {
		return nil, err
	}

	toSend := matching
	if req.MaxTracksToAI > 0 && toSend > req.MaxTracksToAI {
		toSend = req.MaxTracksToAI
	}

	in, out := p.estimator.EstimateTokens(toSend, req.trackCount())

	return &models.FilterPreview{
		MatchingTracks:        matching,
		TracksToSend:          toSend,
		EstimatedInputTokens:  in,
		EstimatedOutputTokens: out,
		EstimatedCost:         p.estimator.Cost(p.llm.Model(), in, out),
	}, nil
}

// Generate produces a playlist for the request. It fails with
// shared.ErrCacheEmpty when the library has not been synced and
// shared.ErrNoMatches when the criteria match nothing.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*models.GeneratedPlaylist, error) {
	size, err := p.filter.LibrarySize()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, shared.ErrCacheEmpty
	}

	candidates, err := p.filter.Candidates(req.Criteria)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, shared.ErrNoMatches
	}

	pool := p.sampler.Sample(candidates, req.MaxTracksToAI)
	p.logger.Info("offering tracks to LLM", "matching", len(candidates), "offered", len(pool))

	resp, err := p.llm.Complete(ctx, generationSystem, buildGenerationPrompt(req.Prompt, pool, req.trackCount()))
	if err != nil {
		return nil, err
	}
	p.logger.Info("LLM response received", "input_tokens", resp.InputTokens, "output_tokens", resp.OutputTokens)

	selections, err := parseSelections(resp.Content)
	if err != nil {
		return nil, err
	}

	results := p.resolver.Resolve(selections, pool)

	playlist := &models.GeneratedPlaylist{
		TrackReasons:  make(map[string]string),
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
		EstimatedCost: p.estimator.Cost(resp.Model, resp.InputTokens, resp.OutputTokens),
	}

	for _, r := range results {
		if !r.Resolved() {
			playlist.Unresolved++
			p.logger.Debug("selection unresolved", "artist", r.Selection.Artist, "title", r.Selection.Title, "score", r.Score)
			continue
		}
		if len(playlist.Tracks) >= req.trackCount() {
			continue
		}
		playlist.Tracks = append(playlist.Tracks, *r.Track)
		if r.Selection.Reason != "" {
			playlist.TrackReasons[r.Track.RatingKey] = r.Selection.Reason
		}
	}

	playlist.Title, playlist.Narrative = p.narrative(ctx, req.Prompt, selections)

	p.logger.Info("playlist generated",
		"title", playlist.Title,
		"tracks", len(playlist.Tracks),
		"unresolved", playlist.Unresolved)

	return playlist, nil
}

// narrative asks the LLM for a title and liner note. Failures fall back to
// a dated default title; they never fail the generation itself.
func (p *Pipeline) narrative(ctx context.Context, userPrompt string, selections []models.Selection) (title, narrative string) {
	fallback := time.Now().Format("Jan 2006") + " Playlist"

	resp, err := p.llm.Complete(ctx, narrativeSystem, buildNarrativePrompt(userPrompt, selections))
	if err != nil {
		p.logger.Warn("narrative generation failed", "err", err)
		return fallback, ""
	}

	var out struct {
		Title     string `json:"title"`
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Content, '{', '}')), &out); err != nil {
		p.logger.Warn("narrative response unparseable", "err", err)
		return fallback, ""
	}

	if strings.TrimSpace(out.Title) == "" {
		return fallback, strings.TrimSpace(out.Narrative)
	}
	return strings.TrimSpace(out.Title) + " - " + time.Now().Format("Jan 2006"), strings.TrimSpace(out.Narrative)
}

func buildGenerationPrompt(userPrompt string, pool []models.Track, trackCount int) string {
	var lines []string
	for i, t := range pool {
		year := "Unknown year"
		if t.Year != nil {
			year = fmt.Sprintf("%d", *t.Year)
		}
		lines = append(lines, fmt.Sprintf("%d. %s - %s (%s, %s)", i+1, t.Artist, t.Title, t.Album, year))
	}

	var parts []string
	if userPrompt != "" {
		parts = append(parts, "User's request: "+userPrompt)
	}
	parts = append(parts, fmt.Sprintf("\nSelect %d tracks from this library:\n%s", trackCount, strings.Join(lines, "\n")))

	return strings.Join(parts, "\n\n")
}

// buildNarrativePrompt includes at most 15 selections to keep the second
// call cheap.
func buildNarrativePrompt(userPrompt string, selections []models.Selection) string {
	limit := len(selections)
	if limit > 15 {
		limit = 15
	}

	var lines []string
	for _, sel := range selections[:limit] {
		reason := sel.Reason
		if reason == "" {
			reason = "Selected for this playlist"
		}
		lines = append(lines, fmt.Sprintf("- %s - %q: %s", sel.Artist, sel.Title, reason))
	}

	tracks := "Selected tracks:\n" + strings.Join(lines, "\n")
	if userPrompt == "" {
		return tracks
	}
	return "User's request: " + userPrompt + "\n\n" + tracks
}

// parseSelections decodes the LLM's track list, tolerating markdown fences
// and surrounding prose around the JSON array.
func parseSelections(content string) ([]models.Selection, error) {
	raw := extractJSON(content, '[', ']')
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON array in response", shared.ErrBadLLMResponse)
	}

	var selections []models.Selection
	if err := json.Unmarshal([]byte(raw), &selections); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrBadLLMResponse, err)
	}
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: empty selection list", shared.ErrBadLLMResponse)
	}

	return selections, nil
}

// extractJSON returns the widest open..closing span in s, or "" when the
// delimiters are absent or inverted.
func extractJSON(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

const generationSystem = `You are a music curator creating a playlist from a user's music library.

You will be given:
1. A description of what the user wants
2. A numbered list of tracks that are available in their library

Your task is to select tracks that best match the user's request. For each track, include a brief reason (1 sentence) explaining why it fits.

Guidelines:
- Select tracks that fit the mood, era, style, and other aspects of the request
- Vary the selection - don't pick too many tracks from the same artist or album
- Consider the flow of the playlist - how tracks will sound in sequence

Return ONLY a JSON array like:
[
  {"artist": "Artist Name", "album": "Album Name", "title": "Track Title", "reason": "Brief explanation of why this track fits."},
  ...
]

No markdown formatting, no explanations - just the JSON array.`

const narrativeSystem = `You are a music connoisseur writing a brief liner note for a playlist.

Given the user's original request and the track selections (with reasons), create:
1. A creative playlist title (2-5 words, evocative, do NOT include any date)
2. A brief narrative (3 sentences, under 400 characters) that:
   - Reflects the mood or theme the user asked for
   - Mentions 3-4 specific songs by name (use single quotes around song names, e.g. 'Skinny Love')

Sound like a passionate music lover. Be concise.

Return ONLY valid JSON:
{"title": "Creative Title Here", "narrative": "Your brief narrative with 'song names' in single quotes..."}

No markdown formatting, no explanations - just the JSON object.`
