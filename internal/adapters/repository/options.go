package repository

import (
	"time"

	"github.com/okian/blindtest/internal/domain/model"
)

type options struct {
	metricsUpdateInterval time.Duration
	location              *time.Location
	defaultProbability    model.ProbabilitySettings
}

func defaultOptions() options {
	return options{
		metricsUpdateInterval: 5 * time.Second,
		location:              time.Local,
		defaultProbability: model.ProbabilitySettings{
			WeightLastPlayed: 0.7,
			WeightTotalPlays: 0.3,
		},
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithLocation sets the zone session dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithDefaultProbability sets the weights returned before any are saved.
func WithDefaultProbability(ps model.ProbabilitySettings) Option {
	return func(o *options) {
		if ps.Validate() == nil {
			o.defaultProbability = ps
		}
	}
}
