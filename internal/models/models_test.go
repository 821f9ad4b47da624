package models

import (
	"testing"
	"time"
)

func intp(v int) *int { return &v }

func TestTrackValidate(t *testing.T) {
	valid := Track{RatingKey: "1001", Title: "Karma Police", Artist: "Radiohead"}

	t.Run("Valid", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected valid track, got %v", err)
		}
	})

	t.Run("MissingRatingKey", func(t *testing.T) {
		tr := valid
		tr.RatingKey = ""
		if err := tr.Validate(); err == nil {
			t.Error("expected error for missing rating key")
		}
	})

	t.Run("MissingTitle", func(t *testing.T) {
		tr := valid
		tr.Title = ""
		if err := tr.Validate(); err == nil {
			t.Error("expected error for missing title")
		}
	})

	t.Run("YearBounds", func(t *testing.T) {
		tr := valid
		tr.Year = intp(1850)
		if err := tr.Validate(); err == nil {
			t.Error("expected error for year 1850")
		}

		tr.Year = intp(1997)
		if err := tr.Validate(); err != nil {
			t.Errorf("expected year 1997 to validate, got %v", err)
		}
	})

	t.Run("RatingBounds", func(t *testing.T) {
		tr := valid
		tr.UserRating = intp(11)
		if err := tr.Validate(); err == nil {
			t.Error("expected error for rating 11")
		}
	})
}

func TestSyncStateIsStale(t *testing.T) {
	t.Run("NeverSynced", func(t *testing.T) {
		if !(SyncState{}).IsStale(24 * time.Hour) {
			t.Error("empty state should be stale")
		}
	})

	t.Run("Fresh", func(t *testing.T) {
		now := time.Now()
		state := SyncState{LastSyncAt: &now, TrackCount: 10}
		if state.IsStale(24 * time.Hour) {
			t.Error("state synced just now should not be stale")
		}
	})

	t.Run("Old", func(t *testing.T) {
		old := time.Now().Add(-25 * time.Hour)
		state := SyncState{LastSyncAt: &old, TrackCount: 10}
		if !state.IsStale(24 * time.Hour) {
			t.Error("state synced 25h ago should be stale")
		}
	})
}

func TestDecadeRange(t *testing.T) {
	t.Run("Suffixed", func(t *testing.T) {
		start, end, err := DecadeRange("1990s")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if start != 1990 || end != 1999 {
			t.Errorf("expected 1990-1999, got %d-%d", start, end)
		}
	})

	t.Run("Bare", func(t *testing.T) {
		start, end, err := DecadeRange("2010")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if start != 2010 || end != 2019 {
			t.Errorf("expected 2010-2019, got %d-%d", start, end)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if _, _, err := DecadeRange("nineties"); err == nil {
			t.Error("expected error for non-numeric decade")
		}
	})
}
