// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/questrec/internal/adapters/repository"
	"github.com/okian/questrec/internal/domain/model"
	"github.com/okian/questrec/internal/domain/recommend"
	"github.com/okian/questrec/pkg/logger"
	"github.com/okian/questrec/pkg/metrics"
)

// Service implements the API dependencies for the recommendation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	recommender *recommend.Recommender

	// Configuration
	neighborCount  int
	poolWarnSize   int
	requestTimeout time.Duration
	statsInterval  time.Duration

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the data store the pipeline reads from.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNeighborCount sets the similarity window size K.
func WithNeighborCount(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.neighborCount = k
		}
	}
}

// WithPoolWarnSize sets the comparison pool size above which a warning is logged.
func WithPoolWarnSize(n int) Option {
	return func(s *Service) {
		s.poolWarnSize = n
	}
}

// WithRequestTimeout bounds one whole pipeline run.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithStatsInterval sets how often the store size gauge is refreshed.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		neighborCount:  recommend.DefaultNeighborCount,
		poolWarnSize:   5000,
		requestTimeout: 10 * time.Second,
		statsInterval:  30 * time.Second,
		stopCh:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start wires the recommender to the store and starts the stats refresher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.logger.Info(ctx, "starting recommendation service...")

	s.recommender = recommend.New(s.store,
		recommend.WithNeighborCount(s.neighborCount),
		recommend.WithPoolWarnSize(s.poolWarnSize),
		recommend.WithLogger(s.logger.Named("recommend")),
	)

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.refreshLoop(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("neighborCount", s.neighborCount),
		logger.Int("poolWarnSize", s.poolWarnSize),
		logger.String("requestTimeout", s.requestTimeout.String()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping recommendation service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(context.Background(), "recommendation service stopped")
}

// refreshLoop keeps the store size gauge current until stop is closed.
func (s *Service) refreshLoop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	s.refreshStoreSize()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.refreshStoreSize()
		}
	}
}

func (s *Service) refreshStoreSize() {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	n, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to count evaluations", logger.Error(err))
		metrics.RecordErrorByComponent("service", "store_count")
		return
	}
	metrics.UpdateStoreEvaluations(n)
}

// Recommend runs the recommendation pipeline for one evaluation under the
// configured request timeout and records its outcome.
func (s *Service) Recommend(ctx context.Context, eval model.EvaluationID, subject model.SubjectID, scale model.ScaleID) (recommend.Recommendation, error) {
	s.mu.RLock()
	r, started := s.recommender, s.started
	s.mu.RUnlock()
	if !started {
		return recommend.Recommendation{}, ErrNotStarted
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	start := time.Now()
	rec, err := r.Recommend(ctx, eval, subject, scale)
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordRecommendLatency(latency)

	if err != nil {
		s.recordFailure(ctx, err, latency, eval, subject, scale)
		return recommend.Recommendation{}, err
	}

	st := rec.Stats
	metrics.RecordPipelineSizes(st.PoolEvaluations, st.Neighbors, st.ProgressionRecords, len(rec.Questions))
	if rec.NoData {
		metrics.RecordRecommendation(metrics.OutcomeNoData)
	} else {
		metrics.RecordRecommendation(metrics.OutcomeRecommended)
	}

	s.logger.Debug(ctx, "recommendation computed",
		logger.Int64("evaluation", int64(eval)),
		logger.Int64("subject", int64(subject)),
		logger.Int64("scale", int64(scale)),
		logger.Bool("noData", rec.NoData),
		logger.Int("pool", st.PoolEvaluations),
		logger.Int("neighbors", st.Neighbors),
		logger.Int("progression", st.ProgressionRecords),
		logger.Int("questions", len(rec.Questions)),
		logger.Float64("latencyMs", latency),
	)
	return rec, nil
}

func (s *Service) recordFailure(ctx context.Context, err error, latency float64, eval model.EvaluationID, subject model.SubjectID, scale model.ScaleID) {
	if errors.Is(err, recommend.ErrNotFound) {
		metrics.RecordRecommendation(metrics.OutcomeNotFound)
		return
	}
	// Canceled by the caller.
	if errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		metrics.RecordRecommendation(metrics.OutcomeCanceled)
		s.logger.Debug(ctx, "recommendation canceled",
			logger.Int64("evaluation", int64(eval)),
			logger.Int64("subject", int64(subject)),
			logger.Int64("scale", int64(scale)),
		)
		return
	}

	metrics.RecordRecommendation(metrics.OutcomeError)
	kind := errorKind(err)
	if kind == "inconsistent" {
		metrics.RecordInconsistentQuestion()
	}
	metrics.RecordErrorByComponent("recommend", kind)
	metrics.RecordErrorLatency("recommend", kind, latency)

	s.logger.Error(ctx, "recommendation failed",
		logger.Int64("evaluation", int64(eval)),
		logger.Int64("subject", int64(subject)),
		logger.Int64("scale", int64(scale)),
		logger.String("kind", kind),
		logger.Error(err),
	)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, recommend.ErrInconsistent):
		return "inconsistent"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, repository.ErrUnavailable):
		return "store_unavailable"
	default:
		return "store"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"neighborCount":    s.neighborCount,
		"poolWarnSize":     s.poolWarnSize,
		"requestTimeoutMs": s.requestTimeout.Milliseconds(),
	}

	if s.started {
		ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
		defer cancel()
		if n, err := s.store.Count(ctx); err == nil {
			stats["totalEvaluations"] = n
			metrics.UpdateStoreEvaluations(n)
		}
		if b, ok := s.store.(interface{ State() string }); ok {
			stats["storeBreaker"] = b.State()
		}
	}

	return stats
}
