package recommend

import (
	"fmt"

	"github.com/okian/questrec/internal/domain/model"
)

// ResolveQuestions maps ranked gaps to display descriptors in the same order.
// A gap whose question has no metadata is a data-integrity fault and yields
// ErrInconsistent; nothing is dropped silently.
func ResolveQuestions(gaps []Gap, questions []model.Question) ([]model.QuestionDescriptor, error) {
	byID := make(map[model.QuestionID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := make([]model.QuestionDescriptor, 0, len(gaps))
	for _, g := range gaps {
		q, ok := byID[g.Question]
		if !ok {
			return nil, fmt.Errorf("question %d: %w", g.Question, ErrInconsistent)
		}
		out = append(out, q.Descriptor())
	}
	return out, nil
}
