package repository

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/questrec/internal/domain/model"
)

type seedQuestion struct {
	ID      int64  `koanf:"id"`
	Scale   int64  `koanf:"scale"`
	Order   int    `koanf:"order"`
	Content string `koanf:"content"`
	Domain  string `koanf:"domain"`
	Color   string `koanf:"color"`
}

type seedAnswer struct {
	Question int64   `koanf:"question"`
	Score    float64 `koanf:"score"`
}

type seedEvaluation struct {
	ID      int64        `koanf:"id"`
	Subject int64        `koanf:"subject"`
	Scale   int64        `koanf:"scale"`
	Answers []seedAnswer `koanf:"answers"`
}

// LoadSeedFile fills s from a YAML fixture:
//
//	questions:
//	  - {id: 1, scale: 1, order: 1, content: "...", domain: "...", color: "..."}
//	evaluations:
//	  - id: 10
//	    subject: 100
//	    scale: 1
//	    answers: [{question: 1, score: 2}]
func LoadSeedFile(ctx context.Context, s *MemStore, path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load seed %s: %w", path, err)
	}

	var questions []seedQuestion
	if err := k.Unmarshal("questions", &questions); err != nil {
		return fmt.Errorf("decode seed questions: %w", err)
	}
	var evaluations []seedEvaluation
	if err := k.Unmarshal("evaluations", &evaluations); err != nil {
		return fmt.Errorf("decode seed evaluations: %w", err)
	}

	for _, q := range questions {
		if err := s.AddQuestion(ctx, model.Question{
			ID:           model.QuestionID(q.ID),
			Scale:        model.ScaleID(q.Scale),
			DisplayOrder: q.Order,
			Content:      q.Content,
			Domain:       q.Domain,
			Color:        q.Color,
		}); err != nil {
			return err
		}
	}
	for _, e := range evaluations {
		if err := s.AddEvaluation(ctx, model.Evaluation{
			ID:      model.EvaluationID(e.ID),
			Subject: model.SubjectID(e.Subject),
			Scale:   model.ScaleID(e.Scale),
		}); err != nil {
			return err
		}
		for _, a := range e.Answers {
			if err := s.AddAnswer(ctx, model.EvaluationID(e.ID), model.QuestionID(a.Question), a.Score); err != nil {
				return err
			}
		}
	}
	return nil
}
