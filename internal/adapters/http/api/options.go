package api

import "github.com/okian/questrec/pkg/logger"

type options struct {
	rps    float64
	burst  int
	logger logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*options)

// WithRateLimit bounds /recommend to rps requests per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
