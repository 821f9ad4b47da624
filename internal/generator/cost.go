package generator

import "github.com/ecwilsonaz/plexsage/internal/shared"

// Token heuristics for sizing a generation request before it is sent.
const (
	basePromptTokens    = 500 // instructions and framing around the track list
	tokensPerTrack      = 50  // one numbered "artist - title (album, year)" line
	tokensPerSuggestion = 30  // one JSON selection object in the response
)

// CostEstimator prices LLM calls from the configured per-model token rates.
// The same estimator backs both the pre-flight preview and the final
// accounting on a finished playlist, so the two never diverge.
type CostEstimator struct {
	pricing map[string]shared.ModelCost
}

func NewCostEstimator(pricing map[string]shared.ModelCost) *CostEstimator {
	return &CostEstimator{pricing: pricing}
}

// EstimateTokens predicts input and output token counts for a request that
// offers tracksOffered candidates and asks for targetLength suggestions.
func (e *CostEstimator) EstimateTokens(tracksOffered, targetLength int) (inputTokens, outputTokens int) {
	return basePromptTokens + tracksOffered*tokensPerTrack, targetLength * tokensPerSuggestion
}

// Cost converts token counts into USD for the given model. Models without a
// pricing entry cost zero, which is the right answer for local providers.
func (e *CostEstimator) Cost(model string, inputTokens, outputTokens int) float64 {
	rate, ok := e.pricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*rate.Input + float64(outputTokens)/1e6*rate.Output
}
