package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/questrec/internal/domain/model"
)

// ProgressionSource retrieves the answers of a subject's evaluations in a
// scale whose ID is strictly greater than after.
type ProgressionSource interface {
	ProgressionAnswers(ctx context.Context, after model.EvaluationID, subject model.SubjectID, scale model.ScaleID) ([]model.Answer, error)
}

// Progression is the peer baseline built from the neighbors' later
// evaluations.
type Progression struct {
	// Mean is the per-question mean over every later evaluation.
	Mean Vector
	// Records is the number of answers merged from all neighbors.
	Records int
	// Evaluations is the number of distinct later evaluations.
	Evaluations int
}

// AggregateProgression follows each neighbor's owning subject forward in time
// and reduces the union of their later answers to a per-question mean. All
// neighbors contribute with equal weight per answer.
//
// Returns ErrEmptyInput when no neighbor's subject has a later evaluation.
func AggregateProgression(ctx context.Context, src ProgressionSource, neighbors []Neighbor, owners Owners, scale model.ScaleID) (Progression, error) {
	var combined []model.Answer
	for _, n := range neighbors {
		subject, ok := owners[n.Evaluation]
		if !ok {
			return Progression{}, fmt.Errorf("neighbor %d has no owning subject: %w", n.Evaluation, ErrInconsistent)
		}
		answers, err := src.ProgressionAnswers(ctx, n.Evaluation, subject, scale)
		if err != nil {
			return Progression{}, fmt.Errorf("progression of evaluation %d: %w", n.Evaluation, err)
		}
		combined = append(combined, answers...)
	}

	m, _, err := BuildMatrix(combined)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return Progression{}, fmt.Errorf("no later evaluations for %d neighbors: %w", len(neighbors), err)
		}
		return Progression{}, err
	}

	return Progression{
		Mean:        m.ColumnMeans(),
		Records:     len(combined),
		Evaluations: m.Len(),
	}, nil
}
