package services

import "context"

// RawTrack is one record as returned by the media server, before cache
// transformation. It carries everything needed to populate a cached track.
type RawTrack struct {
	RatingKey  string
	Title      string
	Artist     string
	Album      string
	DurationMS int
	Year       *int
	Genres     []string
	UserRating *int
}

// MediaSource is the remote media server the local cache mirrors.
//
// Implementations are expected to be slow: TotalCount and FetchBatch go over
// the network, which is why the sync orchestrator pages through FetchBatch
// rather than asking for everything at once.
type MediaSource interface {
	// Identity returns an opaque string identifying the server instance.
	// A change in identity invalidates the entire local cache.
	Identity(ctx context.Context) (string, error)

	// TotalCount returns the number of tracks in the music library.
	TotalCount(ctx context.Context) (int, error)

	// FetchBatch returns up to size raw tracks starting at offset.
	FetchBatch(ctx context.Context, offset, size int) ([]RawTrack, error)

	// Name identifies the source implementation for logging.
	Name() string
}

// LLMResponse is the raw result of one completion call.
type LLMResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns the combined input and output token count.
func (r *LLMResponse) TotalTokens() int { return r.InputTokens + r.OutputTokens }

// LLMGateway is the completion transport used by the generation pipeline.
// Prompt content is owned by the caller; the gateway only moves text and
// reports token usage.
type LLMGateway interface {
	Complete(ctx context.Context, system, prompt string) (*LLMResponse, error)
	Model() string
}
