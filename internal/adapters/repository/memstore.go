package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/questrec/internal/domain/model"
)

// MemStore is an in-memory Store. It backs tests and local runs of the
// service with the memory backend.
type MemStore struct {
	mu          sync.RWMutex
	evaluations map[model.EvaluationID]model.Evaluation
	questions   map[model.QuestionID]model.Question
	answers     map[model.EvaluationID]map[model.QuestionID]float64
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		evaluations: make(map[model.EvaluationID]model.Evaluation),
		questions:   make(map[model.QuestionID]model.Question),
		answers:     make(map[model.EvaluationID]map[model.QuestionID]float64),
	}
}

// AddEvaluation stores an evaluation. IDs must be unique.
func (s *MemStore) AddEvaluation(_ context.Context, e model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evaluations[e.ID]; ok {
		return fmt.Errorf("evaluation %d: %w", e.ID, ErrDuplicate)
	}
	s.evaluations[e.ID] = e
	return nil
}

// AddQuestion stores a question. IDs must be unique.
func (s *MemStore) AddQuestion(_ context.Context, q model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return fmt.Errorf("question %d: %w", q.ID, ErrDuplicate)
	}
	s.questions[q.ID] = q
	return nil
}

// AddAnswer records the score of one question in one evaluation. Both must
// exist and belong to the same scale; an evaluation answers a question once.
func (s *MemStore) AddAnswer(_ context.Context, eval model.EvaluationID, question model.QuestionID, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evaluations[eval]
	if !ok {
		return fmt.Errorf("evaluation %d: %w", eval, ErrUnknownReference)
	}
	q, ok := s.questions[question]
	if !ok {
		return fmt.Errorf("question %d: %w", question, ErrUnknownReference)
	}
	if q.Scale != e.Scale {
		return fmt.Errorf("question %d is in scale %d, evaluation %d in scale %d: %w", question, q.Scale, eval, e.Scale, ErrUnknownReference)
	}
	row, ok := s.answers[eval]
	if !ok {
		row = make(map[model.QuestionID]float64)
		s.answers[eval] = row
	}
	if _, ok := row[question]; ok {
		return fmt.Errorf("answer %d/%d: %w", eval, question, ErrDuplicate)
	}
	row[question] = score
	return nil
}

// FindEvaluation implements recommend.Source.
func (s *MemStore) FindEvaluation(_ context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) (model.Evaluation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evaluations[eval]
	if !ok || e.Subject != subject || e.Scale != scale {
		return model.Evaluation{}, false, nil
	}
	return e, true, nil
}

// PrimaryAnswers implements recommend.Source.
func (s *MemStore) PrimaryAnswers(_ context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(scale, func(e model.Evaluation) bool {
		return e.Subject != subject || e.ID == eval
	}), nil
}

// ProgressionAnswers implements recommend.Source.
func (s *MemStore) ProgressionAnswers(_ context.Context, after model.EvaluationID, subject model.SubjectID, scale model.ScaleID) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(scale, func(e model.Evaluation) bool {
		return e.Subject == subject && e.ID > after
	}), nil
}

// collect returns answers to questions of scale from evaluations accepted by
// keep, ordered by evaluation then question. Callers hold s.mu.
func (s *MemStore) collect(scale model.ScaleID, keep func(model.Evaluation) bool) []model.Answer {
	var out []model.Answer
	for id, row := range s.answers {
		e := s.evaluations[id]
		if !keep(e) {
			continue
		}
		for qid, score := range row {
			if s.questions[qid].Scale != scale {
				continue
			}
			out = append(out, model.Answer{
				Evaluation: e.ID,
				Subject:    e.Subject,
				Question:   qid,
				Score:      score,
				CreatedAt:  e.CreatedAt,
			})
		}
	}
	slices.SortFunc(out, func(a, b model.Answer) int {
		if c := cmp.Compare(a.Evaluation, b.Evaluation); c != 0 {
			return c
		}
		return cmp.Compare(a.Question, b.Question)
	})
	return out
}

// Questions implements recommend.Source.
func (s *MemStore) Questions(_ context.Context, scale model.ScaleID) ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Question
	for _, q := range s.questions {
		if q.Scale == scale {
			out = append(out, q)
		}
	}
	slices.SortFunc(out, func(a, b model.Question) int {
		if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Count returns the number of evaluations.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.evaluations), nil
}
