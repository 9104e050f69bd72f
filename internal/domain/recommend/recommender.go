package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/questrec/internal/domain/model"
	"github.com/okian/questrec/pkg/logger"
)

// Source is the data-access contract the pipeline consumes. Implementations
// own their connection handles; the pipeline never keeps one across calls.
type Source interface {
	ProgressionSource

	// FindEvaluation returns the evaluation matching all three IDs. The bool
	// is false when no such evaluation exists.
	FindEvaluation(ctx context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) (model.Evaluation, bool, error)

	// PrimaryAnswers returns every answer in scale from subjects other than
	// subject, plus the answers of eval itself.
	PrimaryAnswers(ctx context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) ([]model.Answer, error)

	// Questions returns the metadata of every question in scale.
	Questions(ctx context.Context, scale model.ScaleID) ([]model.Question, error)
}

// Recommendation is the outcome of one pipeline run.
type Recommendation struct {
	// Questions is the ranked list; it may be empty.
	Questions []model.QuestionDescriptor
	// NoData is set when there was nothing to compare against. Questions is
	// nil in that case.
	NoData bool
	// Stats describes the run for logging and metrics.
	Stats Stats
}

// Stats describes the sizes seen by one pipeline run.
type Stats struct {
	PoolEvaluations        int
	PoolQuestions          int
	Neighbors              int
	ProgressionRecords     int
	ProgressionEvaluations int
	Gaps                   int
}

// Recommender runs the recommendation pipeline against a Source.
type Recommender struct {
	source        Source
	neighborCount int
	poolWarnSize  int
	logger        logger.Logger
}

// New constructs a Recommender.
func New(source Source, opts ...Option) *Recommender {
	r := &Recommender{
		source:        source,
		neighborCount: DefaultNeighborCount,
		poolWarnSize:  defaultPoolWarnSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	return r
}

// Recommend ranks the questions of scale for the target evaluation.
//
// Returns ErrNotFound when the (eval, subject, scale) triple does not exist.
// A missing comparison pool or progression yields Recommendation.NoData.
func (r *Recommender) Recommend(ctx context.Context, eval model.EvaluationID, subject model.SubjectID, scale model.ScaleID) (Recommendation, error) {
	if _, ok, err := r.source.FindEvaluation(ctx, subject, eval, scale); err != nil {
		return Recommendation{}, fmt.Errorf("find evaluation: %w", err)
	} else if !ok {
		return Recommendation{}, fmt.Errorf("evaluation %d of subject %d in scale %d: %w", eval, subject, scale, ErrNotFound)
	}

	primary, err := r.source.PrimaryAnswers(ctx, subject, eval, scale)
	if err != nil {
		return Recommendation{}, fmt.Errorf("primary answers: %w", err)
	}

	pool, owners, err := BuildMatrix(primary)
	if errors.Is(err, ErrEmptyInput) {
		r.logger.Debug(ctx, "empty comparison pool", logger.Int64("scale", int64(scale)))
		return Recommendation{NoData: true}, nil
	}
	if err != nil {
		return Recommendation{}, err
	}

	var stats Stats
	stats.PoolEvaluations = pool.Len()
	stats.PoolQuestions = len(pool.Columns())
	if r.poolWarnSize > 0 && pool.Len() > r.poolWarnSize {
		r.logger.Warn(ctx, "comparison pool exceeds warn size",
			logger.Int("pool", pool.Len()),
			logger.Int("warn_size", r.poolWarnSize),
			logger.Int64("scale", int64(scale)),
		)
	}

	sim := CosineSimilarity(pool)
	neighbors, err := SelectNeighbors(sim, eval, r.neighborCount)
	if err != nil {
		return Recommendation{}, err
	}
	stats.Neighbors = len(neighbors)

	progression, err := AggregateProgression(ctx, r.source, neighbors, owners, scale)
	if errors.Is(err, ErrEmptyInput) {
		r.logger.Debug(ctx, "no progression for neighbors",
			logger.Int64("evaluation", int64(eval)),
			logger.Int("neighbors", len(neighbors)),
		)
		return Recommendation{NoData: true, Stats: stats}, nil
	}
	if err != nil {
		return Recommendation{}, err
	}
	stats.ProgressionRecords = progression.Records
	stats.ProgressionEvaluations = progression.Evaluations

	target, _ := pool.Row(eval)
	gaps := AnalyzeGaps(progression.Mean, target)
	stats.Gaps = len(gaps)

	questions, err := r.source.Questions(ctx, scale)
	if err != nil {
		return Recommendation{}, fmt.Errorf("questions: %w", err)
	}
	descriptors, err := ResolveQuestions(gaps, questions)
	if err != nil {
		r.logger.Error(ctx, "ranked question without metadata",
			logger.Int64("scale", int64(scale)),
			logger.Error(err),
		)
		return Recommendation{}, err
	}

	return Recommendation{Questions: descriptors, Stats: stats}, nil
}
