// Package model contains domain models passed between layers.
package model

import "time"

// EvaluationID identifies an evaluation. IDs are assigned monotonically, so a
// larger ID was created later.
type EvaluationID int64

// SubjectID identifies the subject (client) owning evaluations.
type SubjectID int64

// ScaleID identifies a measurement scale.
type ScaleID int64

// QuestionID identifies a question within a scale.
type QuestionID int64

// Evaluation is one completed assessment instance.
type Evaluation struct {
	ID        EvaluationID
	Subject   SubjectID
	Scale     ScaleID
	CreatedAt time.Time
}

// Question is a scale item with display metadata.
type Question struct {
	ID           QuestionID
	Scale        ScaleID
	DisplayOrder int
	Content      string
	Domain       string
	Color        string
}

// Answer links an evaluation to a question with the chosen item's score.
type Answer struct {
	Evaluation EvaluationID
	Subject    SubjectID
	Question   QuestionID
	Score      float64
	CreatedAt  time.Time // evaluation timestamp
}

// QuestionDescriptor is the display shape of a recommended question.
type QuestionDescriptor struct {
	QuestionID   QuestionID `json:"questionid"`
	DisplayOrder int        `json:"item_order"`
	Content      string     `json:"content"`
	Domain       string     `json:"domain"`
	Color        string     `json:"color"`
}

// Descriptor projects a question onto its display shape.
func (q Question) Descriptor() QuestionDescriptor {
	return QuestionDescriptor{
		QuestionID:   q.ID,
		DisplayOrder: q.DisplayOrder,
		Content:      q.Content,
		Domain:       q.Domain,
		Color:        q.Color,
	}
}
