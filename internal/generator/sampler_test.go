package generator

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/ecwilsonaz/plexsage/internal/models"
)

func sampleInput(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{RatingKey: strconv.Itoa(i)}
	}
	return tracks
}

func TestSample(t *testing.T) {
	t.Run("ZeroBudgetMeansNoLimit", func(t *testing.T) {
		got := NewSampler(rand.New(rand.NewSource(1))).Sample(sampleInput(50), 0)
		if len(got) != 50 {
			t.Errorf("expected all tracks, got %d", len(got))
		}
	})

	t.Run("UnderBudgetReturnsInputUnchanged", func(t *testing.T) {
		got := NewSampler(rand.New(rand.NewSource(1))).Sample(sampleInput(10), 20)
		if len(got) != 10 {
			t.Errorf("expected 10 tracks, got %d", len(got))
		}
	})

	t.Run("OverBudgetDrawsExactlyBudget", func(t *testing.T) {
		got := NewSampler(rand.New(rand.NewSource(7))).Sample(sampleInput(100), 30)
		if len(got) != 30 {
			t.Fatalf("expected 30 tracks, got %d", len(got))
		}

		seen := make(map[string]bool)
		for _, tr := range got {
			if seen[tr.RatingKey] {
				t.Errorf("duplicate track %q in sample", tr.RatingKey)
			}
			seen[tr.RatingKey] = true
		}
	})

	t.Run("PreservesRelativeOrder", func(t *testing.T) {
		got := NewSampler(rand.New(rand.NewSource(7))).Sample(sampleInput(100), 30)

		prev := -1
		for _, tr := range got {
			idx, err := strconv.Atoi(tr.RatingKey)
			if err != nil {
				t.Fatalf("unexpected key %q: %v", tr.RatingKey, err)
			}
			if idx <= prev {
				t.Fatalf("sample out of order: %d after %d", idx, prev)
			}
			prev = idx
		}
	})

	t.Run("FixedSeedIsDeterministic", func(t *testing.T) {
		a := NewSampler(rand.New(rand.NewSource(42))).Sample(sampleInput(100), 10)
		b := NewSampler(rand.New(rand.NewSource(42))).Sample(sampleInput(100), 10)

		for i := range a {
			if a[i].RatingKey != b[i].RatingKey {
				t.Fatalf("draws diverge at %d: %q vs %q", i, a[i].RatingKey, b[i].RatingKey)
			}
		}
	})
}
