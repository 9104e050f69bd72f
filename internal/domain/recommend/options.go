package recommend

import "github.com/okian/questrec/pkg/logger"

const defaultPoolWarnSize = 5000

// Option applies a configuration option to the Recommender.
type Option func(*Recommender)

// WithNeighborCount sets the similarity window size K. At most K-1 neighbors
// are used.
func WithNeighborCount(k int) Option {
	return func(r *Recommender) {
		if k > 0 {
			r.neighborCount = k
		}
	}
}

// WithPoolWarnSize sets the pool size above which a warning is logged.
// Zero or negative disables the warning.
func WithPoolWarnSize(n int) Option {
	return func(r *Recommender) {
		r.poolWarnSize = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recommender) {
		if l != nil {
			r.logger = l
		}
	}
}
