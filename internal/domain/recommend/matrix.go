// Package recommend ranks the questions of a scale for one target evaluation
// by comparing it against the later outcomes of similar evaluations.
//
// The pipeline is pure and synchronous over records that the caller has
// already fetched: score matrix -> cosine similarity -> neighbors ->
// progression mean -> gaps -> question descriptors.
package recommend

import (
	"slices"

	"github.com/okian/questrec/internal/domain/model"
)

// Vector maps question IDs to scores. Absent questions read as 0.
type Vector map[model.QuestionID]float64

// Owners maps each evaluation in a matrix to its owning subject.
type Owners map[model.EvaluationID]model.SubjectID

// ScoreMatrix is a dense evaluation x question matrix. Rows and columns are
// sorted ascending by ID; cells an evaluation did not answer hold 0.
type ScoreMatrix struct {
	rows   []model.EvaluationID
	cols   []model.QuestionID
	rowPos map[model.EvaluationID]int
	colPos map[model.QuestionID]int
	cells  []float64 // row-major, len(rows)*len(cols)
}

type cellKey struct {
	eval     model.EvaluationID
	question model.QuestionID
}

type cellAcc struct {
	sum   float64
	count int
}

// BuildMatrix pivots answers into a ScoreMatrix and returns the owning subject
// of every row. Repeated (evaluation, question) pairs are averaged, which
// happens when overlapping progression sets are merged.
//
// Returns ErrEmptyInput when answers is empty.
func BuildMatrix(answers []model.Answer) (*ScoreMatrix, Owners, error) {
	if len(answers) == 0 {
		return nil, nil, ErrEmptyInput
	}

	owners := make(Owners)
	questions := make(map[model.QuestionID]struct{})
	acc := make(map[cellKey]*cellAcc, len(answers))

	for _, a := range answers {
		if _, ok := owners[a.Evaluation]; !ok {
			owners[a.Evaluation] = a.Subject
		}
		questions[a.Question] = struct{}{}

		k := cellKey{eval: a.Evaluation, question: a.Question}
		c, ok := acc[k]
		if !ok {
			c = &cellAcc{}
			acc[k] = c
		}
		c.sum += a.Score
		c.count++
	}

	m := &ScoreMatrix{
		rows:   sortedKeys(owners),
		cols:   sortedKeys(questions),
		rowPos: make(map[model.EvaluationID]int, len(owners)),
		colPos: make(map[model.QuestionID]int, len(questions)),
	}
	for i, id := range m.rows {
		m.rowPos[id] = i
	}
	for j, id := range m.cols {
		m.colPos[id] = j
	}

	m.cells = make([]float64, len(m.rows)*len(m.cols))
	for k, c := range acc {
		m.cells[m.rowPos[k.eval]*len(m.cols)+m.colPos[k.question]] = c.sum / float64(c.count)
	}
	return m, owners, nil
}

func sortedKeys[K ~int64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Rows returns the evaluation IDs in row order.
func (m *ScoreMatrix) Rows() []model.EvaluationID { return slices.Clone(m.rows) }

// Columns returns the question IDs in column order.
func (m *ScoreMatrix) Columns() []model.QuestionID { return slices.Clone(m.cols) }

// Len returns the number of rows.
func (m *ScoreMatrix) Len() int { return len(m.rows) }

// at returns the cell for (eval, question); unknown coordinates read as 0.
func (m *ScoreMatrix) at(eval model.EvaluationID, question model.QuestionID) float64 {
	i, ok := m.rowPos[eval]
	if !ok {
		return 0
	}
	j, ok := m.colPos[question]
	if !ok {
		return 0
	}
	return m.cells[i*len(m.cols)+j]
}

// Row returns the zero-filled score vector of eval over every column.
func (m *ScoreMatrix) Row(eval model.EvaluationID) (Vector, bool) {
	i, ok := m.rowPos[eval]
	if !ok {
		return nil, false
	}
	v := make(Vector, len(m.cols))
	for j, q := range m.cols {
		v[q] = m.cells[i*len(m.cols)+j]
	}
	return v, true
}

// ColumnMeans reduces the matrix to the arithmetic mean of each column over
// all rows, zero-filled cells included.
func (m *ScoreMatrix) ColumnMeans() Vector {
	v := make(Vector, len(m.cols))
	if len(m.rows) == 0 {
		return v
	}
	for j, q := range m.cols {
		var sum float64
		for i := range m.rows {
			sum += m.cells[i*len(m.cols)+j]
		}
		v[q] = sum / float64(len(m.rows))
	}
	return v
}

func (m *ScoreMatrix) rowSlice(i int) []float64 {
	return m.cells[i*len(m.cols) : (i+1)*len(m.cols)]
}
