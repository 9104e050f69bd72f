package repository

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/questrec/internal/domain/model"
	"github.com/okian/questrec/pkg/logger"
	"github.com/okian/questrec/pkg/metrics"
)

// BreakerStore guards a Store with a circuit breaker. After the configured
// number of consecutive failures calls fail fast with ErrUnavailable until
// the breaker half-opens. Context cancellation is not counted as a failure.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

var _ Store = (*BreakerStore)(nil)

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, opts ...BreakerOption) *BreakerStore {
	cfg := defaultBreakerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = logger.Get().Named("store-breaker")
	}

	settings := gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: cfg.maxRequests,
		Interval:    cfg.interval,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateStoreBreakerState(int(to))
			log.Warn(context.Background(), "store breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state name for monitoring.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

type found struct {
	eval model.Evaluation
	ok   bool
}

// FindEvaluation implements recommend.Source.
func (s *BreakerStore) FindEvaluation(ctx context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) (model.Evaluation, bool, error) {
	f, err := execute(s.cb, func() (found, error) {
		e, ok, err := s.next.FindEvaluation(ctx, subject, eval, scale)
		return found{eval: e, ok: ok}, err
	})
	return f.eval, f.ok, err
}

// PrimaryAnswers implements recommend.Source.
func (s *BreakerStore) PrimaryAnswers(ctx context.Context, subject model.SubjectID, eval model.EvaluationID, scale model.ScaleID) ([]model.Answer, error) {
	return execute(s.cb, func() ([]model.Answer, error) {
		return s.next.PrimaryAnswers(ctx, subject, eval, scale)
	})
}

// ProgressionAnswers implements recommend.Source.
func (s *BreakerStore) ProgressionAnswers(ctx context.Context, after model.EvaluationID, subject model.SubjectID, scale model.ScaleID) ([]model.Answer, error) {
	return execute(s.cb, func() ([]model.Answer, error) {
		return s.next.ProgressionAnswers(ctx, after, subject, scale)
	})
}

// Questions implements recommend.Source.
func (s *BreakerStore) Questions(ctx context.Context, scale model.ScaleID) ([]model.Question, error) {
	return execute(s.cb, func() ([]model.Question, error) {
		return s.next.Questions(ctx, scale)
	})
}

// Count implements Store.
func (s *BreakerStore) Count(ctx context.Context) (int, error) {
	return execute(s.cb, func() (int, error) {
		return s.next.Count(ctx)
	})
}
