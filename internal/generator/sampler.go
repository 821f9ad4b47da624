package generator

import (
	"math/rand"
	"time"

	"github.com/ecwilsonaz/plexsage/internal/models"
)

// Sampler draws a uniform random subset of candidate tracks when the filter
// result exceeds the configured token budget. The subset preserves the
// candidates' original relative order so downstream tie-breaking stays
// deterministic for a given draw.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler builds a sampler around the given source. A nil rng gets a
// time-seeded one; tests pass a fixed seed for reproducible draws.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rng: rng}
}

// Sample returns at most budget tracks drawn uniformly without replacement.
// A budget of zero or less means no limit. When the input already fits the
// budget it is returned as-is, untouched.
func (s *Sampler) Sample(tracks []models.Track, budget int) []models.Track {
	if budget <= 0 || len(tracks) <= budget {
		return tracks
	}

	picked := make([]int, len(tracks))
	for i := range picked {
		picked[i] = i
	}

	// Partial Fisher-Yates: the first budget slots end up holding a
	// uniform sample of indices.
	for i := 0; i < budget; i++ {
		j := i + s.rng.Intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}

	keep := make(map[int]bool, budget)
	for _, idx := range picked[:budget] {
		keep[idx] = true
	}

	sample := make([]models.Track, 0, budget)
	for i, t := range tracks {
		if keep[i] {
			sample = append(sample, t)
		}
	}

	return sample
}
