package recommend

import (
	"math"
	"slices"

	"github.com/okian/questrec/internal/domain/model"
)

// SimilarityMatrix is a square, symmetric matrix of cosine similarities,
// indexed by the rows of the ScoreMatrix it was computed from.
type SimilarityMatrix struct {
	index  []model.EvaluationID
	pos    map[model.EvaluationID]int
	values []float64
}

// CosineSimilarity computes dot(i, j) / (|i|*|j|) for every pair of rows.
// A row with zero norm has similarity 0 with every row, itself included.
// The diagonal goes through the same formula, so it is 1 for nonzero rows.
//
// Cost is O(E^2 * Q) for E rows and Q columns.
func CosineSimilarity(m *ScoreMatrix) *SimilarityMatrix {
	n := m.Len()
	s := &SimilarityMatrix{
		index:  m.Rows(),
		pos:    make(map[model.EvaluationID]int, n),
		values: make([]float64, n*n),
	}
	for i, id := range s.index {
		s.pos[id] = i
	}

	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		r := m.rowSlice(i)
		norms[i] = math.Sqrt(dot(r, r))
	}

	for i := 0; i < n; i++ {
		ri := m.rowSlice(i)
		for j := i; j < n; j++ {
			var sim float64
			if norms[i] != 0 && norms[j] != 0 {
				sim = clamp(dot(ri, m.rowSlice(j)) / (norms[i] * norms[j]))
			}
			s.values[i*n+j] = sim
			s.values[j*n+i] = sim
		}
	}
	return s
}

func dot(a, b []float64) float64 {
	var sum float64
	for k := range a {
		sum += a[k] * b[k]
	}
	return sum
}

// clamp absorbs rounding that pushes a cosine just outside [-1, 1].
func clamp(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	default:
		return x
	}
}

// Index returns the evaluation IDs in matrix order.
func (s *SimilarityMatrix) Index() []model.EvaluationID { return slices.Clone(s.index) }

// Len returns the matrix dimension.
func (s *SimilarityMatrix) Len() int { return len(s.index) }

// Contains reports whether eval is in the matrix index.
func (s *SimilarityMatrix) Contains(eval model.EvaluationID) bool {
	_, ok := s.pos[eval]
	return ok
}

// At returns the similarity between a and b. The second result is false when
// either ID is not in the index.
func (s *SimilarityMatrix) At(a, b model.EvaluationID) (float64, bool) {
	i, ok := s.pos[a]
	if !ok {
		return 0, false
	}
	j, ok := s.pos[b]
	if !ok {
		return 0, false
	}
	return s.values[i*len(s.index)+j], true
}
