package generator

import (
	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/repositories"
)

// FilterEngine answers filter questions against the local cache. Filtering
// is read-only and deterministic: the same criteria over the same snapshot
// always yield the same candidate set, in the same order.
type FilterEngine struct {
	repo *repositories.CacheRepository
}

func NewFilterEngine(repo *repositories.CacheRepository) *FilterEngine {
	return &FilterEngine{repo: repo}
}

// Count reports how many cached tracks satisfy the criteria.
func (f *FilterEngine) Count(criteria models.FilterCriteria) (int, error) {
	return f.repo.Count(criteria)
}

// Candidates returns every cached track satisfying the criteria, in the
// cache's stable ordering.
func (f *FilterEngine) Candidates(criteria models.FilterCriteria) ([]models.Track, error) {
	return f.repo.Select(criteria)
}

// LibrarySize reports the total number of cached tracks, ignoring criteria.
func (f *FilterEngine) LibrarySize() (int, error) {
	return f.repo.Count(models.FilterCriteria{})
}
