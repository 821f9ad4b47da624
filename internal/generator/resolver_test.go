package generator

import (
	"testing"

	"github.com/ecwilsonaz/plexsage/internal/models"
)

func resolverPool() []models.Track {
	return []models.Track{
		{RatingKey: "1", Title: "Everlong", Artist: "Foo Fighters"},
		{RatingKey: "2", Title: "Don't Stop Me Now!", Artist: "Queen"},
		{RatingKey: "3", Title: "Maneater", Artist: "Hall & Oates"},
		{RatingKey: "4", Title: "Crazy Little Thing Called Love", Artist: "Queen"},
		{RatingKey: "5", Title: "Hurt", Artist: "Nine Inch Nails"},
	}
}

func TestResolve(t *testing.T) {
	r := NewMatchResolver()

	t.Run("ExactRoundTrip", func(t *testing.T) {
		pool := resolverPool()
		selections := []models.Selection{
			{Artist: "Foo Fighters", Title: "Everlong"},
			{Artist: "Nine Inch Nails", Title: "Hurt"},
		}

		results := r.Resolve(selections, pool)
		if !results[0].Resolved() || results[0].Track.RatingKey != "1" {
			t.Errorf("expected Everlong to resolve to key 1, got %+v", results[0])
		}
		if !results[1].Resolved() || results[1].Track.RatingKey != "5" {
			t.Errorf("expected Hurt to resolve to key 5, got %+v", results[1])
		}
		if results[0].Score != 100 {
			t.Errorf("expected perfect score, got %v", results[0].Score)
		}
	})

	t.Run("NearMissTitleResolves", func(t *testing.T) {
		results := r.Resolve([]models.Selection{
			{Artist: "Queen", Title: "Dont Stop Me Now"},
		}, resolverPool())

		if !results[0].Resolved() || results[0].Track.RatingKey != "2" {
			t.Errorf("expected punctuation variant to resolve, got %+v", results[0])
		}
	})

	t.Run("TruncatedArtistResolves", func(t *testing.T) {
		pool := []models.Track{
			{RatingKey: "1", Title: "1979", Artist: "The Smashing Pumpkins"},
		}
		results := r.Resolve([]models.Selection{
			{Artist: "Smashing Pumpkins", Title: "1979"},
		}, pool)

		if !results[0].Resolved() {
			t.Errorf("expected truncated artist to resolve, got %+v", results[0])
		}
	})

	t.Run("ArtistVariantResolves", func(t *testing.T) {
		results := r.Resolve([]models.Selection{
			{Artist: "Hall and Oates", Title: "Maneater"},
		}, resolverPool())

		if !results[0].Resolved() || results[0].Track.RatingKey != "3" {
			t.Errorf("expected and/& variant to resolve, got %+v", results[0])
		}
	})

	t.Run("RightTitleWrongArtistStaysUnresolved", func(t *testing.T) {
		results := r.Resolve([]models.Selection{
			{Artist: "Radiohead", Title: "Everlong"},
		}, resolverPool())

		if results[0].Resolved() {
			t.Errorf("expected wrong artist to stay unresolved, got %+v", results[0])
		}
		if results[0].Score >= MatchThreshold {
			t.Errorf("expected sub-threshold score, got %v", results[0].Score)
		}
	})

	t.Run("HallucinatedTrackStaysUnresolved", func(t *testing.T) {
		results := r.Resolve([]models.Selection{
			{Artist: "The Beatles", Title: "Yesterday"},
		}, resolverPool())

		if results[0].Resolved() {
			t.Errorf("expected hallucinated track to stay unresolved, got %+v", results[0])
		}
	})

	t.Run("ClaimedTrackIsNotReused", func(t *testing.T) {
		results := r.Resolve([]models.Selection{
			{Artist: "Foo Fighters", Title: "Everlong"},
			{Artist: "Foo Fighters", Title: "Everlong"},
		}, resolverPool())

		if !results[0].Resolved() {
			t.Fatalf("expected first selection to resolve")
		}
		if results[1].Resolved() {
			t.Errorf("expected duplicate selection to stay unresolved, got %+v", results[1])
		}
	})

	t.Run("DuplicateLibraryEntriesClaimInPoolOrder", func(t *testing.T) {
		pool := []models.Track{
			{RatingKey: "a", Title: "Hurt", Artist: "Nine Inch Nails"},
			{RatingKey: "b", Title: "Hurt", Artist: "Nine Inch Nails"},
		}
		results := r.Resolve([]models.Selection{
			{Artist: "Nine Inch Nails", Title: "Hurt"},
			{Artist: "Nine Inch Nails", Title: "Hurt"},
		}, pool)

		if results[0].Track.RatingKey != "a" || results[1].Track.RatingKey != "b" {
			t.Errorf("expected pool-order claiming, got %q then %q",
				results[0].Track.RatingKey, results[1].Track.RatingKey)
		}
	})

	t.Run("ExactArtistBeatsCover", func(t *testing.T) {
		pool := []models.Track{
			{RatingKey: "cover", Title: "Hurt", Artist: "Johnny Cash"},
			{RatingKey: "orig", Title: "Hurt", Artist: "Nine Inch Nails"},
		}
		results := r.Resolve([]models.Selection{
			{Artist: "Nine Inch Nails", Title: "Hurt"},
		}, pool)

		if !results[0].Resolved() || results[0].Track.RatingKey != "orig" {
			t.Errorf("expected exact artist to win, got %+v", results[0])
		}
	})
}
