package generator

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/ecwilsonaz/plexsage/internal/models"
)

// MatchThreshold is the minimum 0-100 similarity score for an LLM selection
// to claim a cached track. Below it the selection stays unresolved rather
// than silently mapping to the wrong song.
const MatchThreshold = 60.0

// MatchResolver maps LLM selections back to exact cached tracks by fuzzy
// string similarity. Resolution is greedy and one-pass: selections are
// processed in the order the LLM returned them, and a claimed track is
// never reassigned to a later selection.
type MatchResolver struct {
	metric *metrics.SorensenDice
}

func NewMatchResolver() *MatchResolver {
	return &MatchResolver{metric: metrics.NewSorensenDice()}
}

// Resolve matches each selection against the offered pool. The result slice
// is parallel to selections; unresolved entries carry a nil Track and their
// best (sub-threshold) score.
func (r *MatchResolver) Resolve(selections []models.Selection, pool []models.Track) []models.MatchResult {
	type candidate struct {
		track   *models.Track
		title   string
		artists []string
		claimed bool
	}

	candidates := make([]candidate, len(pool))
	for i := range pool {
		candidates[i] = candidate{
			track:   &pool[i],
			title:   Simplify(pool[i].Title),
			artists: ArtistVariants(pool[i].Artist),
		}
	}

	results := make([]models.MatchResult, len(selections))

	for si, sel := range selections {
		wantTitle := Simplify(sel.Title)
		wantArtists := ArtistVariants(sel.Artist)

		bestIdx := -1
		bestScore := 0.0
		bestExact := false

		for ci := range candidates {
			cand := &candidates[ci]
			if cand.claimed {
				continue
			}

			score := r.score(wantTitle, wantArtists, cand.title, cand.artists)
			exact := cand.artists[0] == wantArtists[0]

			// Ties break on exact artist equality first, then on
			// pool position, which the > comparison already gives us.
			better := score > bestScore ||
				(score == bestScore && exact && !bestExact)
			if better {
				bestIdx, bestScore, bestExact = ci, score, exact
			}
		}

		results[si] = models.MatchResult{Selection: sel, Score: bestScore}

		if bestIdx >= 0 && bestScore >= MatchThreshold {
			candidates[bestIdx].claimed = true
			results[si].Track = candidates[bestIdx].track
		}
	}

	return results
}

// score computes the 0-100 similarity between a selection and a candidate.
// Title and artist are scored independently and the weaker of the two wins:
// a perfect title match cannot rescue a wrong artist, or the reverse.
func (r *MatchResolver) score(wantTitle string, wantArtists []string, candTitle string, candArtists []string) float64 {
	title := similarity(wantTitle, candTitle, r.metric)

	artist := 0.0
	for _, w := range wantArtists {
		for _, c := range candArtists {
			if s := similarity(w, c, r.metric); s > artist {
				artist = s
			}
		}
	}

	return min(title, artist) * 100
}

func similarity(a, b string, metric strutil.StringMetric) float64 {
	if a == "" || b == "" {
		if a == b {
			return 1
		}
		return 0
	}
	return strutil.Similarity(a, b, metric)
}
