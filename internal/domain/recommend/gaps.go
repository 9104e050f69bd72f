package recommend

import (
	"cmp"
	"slices"

	"github.com/okian/questrec/internal/domain/model"
)

// Gap is the peer mean minus the target score for one question.
type Gap struct {
	Question model.QuestionID
	Value    float64
}

// AnalyzeGaps computes aggregate[q] - target[q] for every question in the
// aggregate and keeps the negative ones, i.e. questions where the peers'
// later mean is below the target's current score. Target scores missing from
// the vector read as 0. Output is ordered by gap asc, then question ID asc.
func AnalyzeGaps(aggregate, target Vector) []Gap {
	gaps := make([]Gap, 0, len(aggregate))
	for q, mean := range aggregate {
		if d := mean - target[q]; d < 0 {
			gaps = append(gaps, Gap{Question: q, Value: d})
		}
	}
	slices.SortFunc(gaps, func(a, b Gap) int {
		if c := cmp.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Question, b.Question)
	})
	return gaps
}
