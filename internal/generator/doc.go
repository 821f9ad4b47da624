// Package generator implements the filter-first playlist generation pipeline.
//
// A generation request flows through four stages: [FilterEngine] narrows the
// cached library by structured criteria, [Sampler] cuts the candidate set
// down to a token budget, the LLM gateway proposes tracks as free text, and
// [MatchResolver] maps each proposal back to an exact cached track. Only
// tracks that were actually offered to the LLM are ever eligible to appear
// in the output, so every suggestion is guaranteed playable.
package generator
