package recommend

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/okian/questrec/internal/domain/model"
)

// DefaultNeighborCount is the size of the similarity window, target included.
const DefaultNeighborCount = 5

// Neighbor is an evaluation ranked by its similarity to the target.
type Neighbor struct {
	Evaluation model.EvaluationID
	Similarity float64
}

// SelectNeighbors returns up to k-1 evaluations other than target, ordered by
// similarity desc, then evaluation ID asc. The target never appears in the
// result.
//
// Returns ErrNotFound when target is not in the similarity index.
func SelectNeighbors(s *SimilarityMatrix, target model.EvaluationID, k int) ([]Neighbor, error) {
	if !s.Contains(target) {
		return nil, fmt.Errorf("evaluation %d not in comparison pool: %w", target, ErrNotFound)
	}
	if k <= 1 {
		return []Neighbor{}, nil
	}

	index := s.Index()
	candidates := make([]Neighbor, 0, len(index))
	for _, id := range index {
		if id == target {
			continue
		}
		sim, _ := s.At(target, id)
		candidates = append(candidates, Neighbor{Evaluation: id, Similarity: sim})
	}

	slices.SortFunc(candidates, func(a, b Neighbor) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Evaluation, b.Evaluation)
	})

	if len(candidates) > k-1 {
		candidates = candidates[:k-1]
	}
	return candidates, nil
}
