// Package probability turns the roster into selection odds and draws a
// winner from them.
//
// The engine performs no I/O and never fails: an empty roster yields an
// empty distribution and a zero score total falls back to uniform odds.
package probability

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
)

const (
	defaultNeverPlayedDays = 365
	defaultJitterMin       = 0.9
	defaultJitterMax       = 1.1
	fullScale              = 100.0
	day                    = 24 * time.Hour
)

// RandomSource returns a float in [0,1).
type RandomSource func() float64

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRandomSource replaces the random source used for jitter and draws.
func WithRandomSource(r RandomSource) Option {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithJitter sets the multiplicative jitter range applied to raw scores.
func WithJitter(minFactor, maxFactor float64) Option {
	return func(e *Engine) {
		if minFactor > 0 && maxFactor >= minFactor {
			e.jitterMin = minFactor
			e.jitterMax = maxFactor
		}
	}
}

// WithNeverPlayedDays sets the days-since-last-play sentinel for participants
// who never hosted.
func WithNeverPlayedDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.neverPlayedDays = days
		}
	}
}

// WithClock sets the clock used to measure time since the last play.
func WithClock(c calendar.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// Engine scores participants and samples winners.
type Engine struct {
	random          RandomSource
	jitterMin       float64
	jitterMax       float64
	neverPlayedDays int
	clock           calendar.Clock
}

// NewEngine creates an engine with production defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		random:          rand.Float64,
		jitterMin:       defaultJitterMin,
		jitterMax:       defaultJitterMax,
		neverPlayedDays: defaultNeverPlayedDays,
		clock:           calendar.NewReal(time.Local),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate scores the active participants and returns them sorted by
// probability, highest first. Probabilities are percentages summing to 100.
func (e *Engine) Calculate(participants []model.Participant, settings model.ProbabilitySettings) []model.ScoredParticipant {
	active := make([]model.ScoredParticipant, 0, len(participants))
	for _, p := range participants {
		if p.IsActive {
			active = append(active, model.ScoredParticipant{Participant: p})
		}
	}
	if len(active) == 0 {
		return active
	}

	now := e.clock.Now()
	maxDays, maxPlays := 1, 1
	for i := range active {
		active[i].DaysSinceLastPlay = e.daysSince(now, active[i].LastPlayedAt)
		maxDays = max(maxDays, active[i].DaysSinceLastPlay)
		maxPlays = max(maxPlays, active[i].TotalPlays)
	}

	w := settings.Clamped()
	var total float64
	for i := range active {
		ageScore := float64(active[i].DaysSinceLastPlay) / float64(maxDays)
		playsScore := 1 - float64(active[i].TotalPlays)/float64(maxPlays+1)
		raw := ageScore*w.WeightLastPlayed + playsScore*w.WeightTotalPlays
		raw *= e.jitter()
		active[i].RawScore = raw
		total += raw
	}

	for i := range active {
		if total == 0 {
			active[i].Probability = fullScale / float64(len(active))
			continue
		}
		active[i].Probability = fullScale * active[i].RawScore / total
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Probability > active[j].Probability
	})
	return active
}

// Select draws one participant using the cumulative distribution. It
// returns false only for an empty list.
func (e *Engine) Select(scored []model.ScoredParticipant) (model.ScoredParticipant, bool) {
	if len(scored) == 0 {
		return model.ScoredParticipant{}, false
	}
	r := e.random() * fullScale
	var cumulative float64
	for _, sp := range scored {
		cumulative += sp.Probability
		if cumulative >= r {
			return sp, true
		}
	}
	// Rounding can leave the running total just under r.
	return scored[len(scored)-1], true
}

func (e *Engine) daysSince(now time.Time, last *time.Time) int {
	if last == nil {
		return e.neverPlayedDays
	}
	d := int(math.Floor(float64(now.Sub(*last)) / float64(day)))
	if d < 0 {
		return 0
	}
	return d
}

func (e *Engine) jitter() float64 {
	return e.jitterMin + e.random()*(e.jitterMax-e.jitterMin)
}
