package probability_test

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/probability"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2025, time.June, 4, 12, 0, 0, 0, time.Local)

func playedAgo(days int) *time.Time {
	t := now.AddDate(0, 0, -days)
	return &t
}

func constant(v float64) probability.RandomSource {
	return func() float64 { return v }
}

func sum(list []model.ScoredParticipant) float64 {
	var s float64
	for _, sp := range list {
		s += sp.Probability
	}
	return s
}

func TestEngine_Calculate(t *testing.T) {
	Convey("Given an engine with a fixed clock and neutral jitter", t, func() {
		engine := probability.NewEngine(
			probability.WithClock(calendar.FixedClock{T: now}),
			probability.WithRandomSource(constant(0.5)), // jitter factor 1.0
		)
		settings := model.ProbabilitySettings{WeightLastPlayed: 0.7, WeightTotalPlays: 0.3}

		Convey("When a newcomer competes with yesterday's busy host", func() {
			roster := []model.Participant{
				{ID: "b", Name: "Busy", TotalPlays: 10, LastPlayedAt: playedAgo(1), IsActive: true},
				{ID: "a", Name: "Newcomer", IsActive: true},
			}
			scored := engine.Calculate(roster, settings)

			Convey("Then the newcomer ranks first with the sentinel age", func() {
				So(len(scored), ShouldEqual, 2)
				So(scored[0].ID, ShouldEqual, "a")
				So(scored[0].DaysSinceLastPlay, ShouldEqual, 365)
				So(scored[0].RawScore, ShouldAlmostEqual, 1.0, 1e-9)
				So(scored[1].DaysSinceLastPlay, ShouldEqual, 1)
				So(scored[1].RawScore, ShouldAlmostEqual, 0.7/365+0.3/11, 1e-9)
				So(scored[0].Probability, ShouldBeGreaterThan, 90)
			})

			Convey("And the probabilities sum to 100", func() {
				So(sum(scored), ShouldAlmostEqual, 100, 1e-9)
			})
		})

		Convey("When some participants are inactive", func() {
			roster := []model.Participant{
				{ID: "a", IsActive: true},
				{ID: "b", IsActive: false},
				{ID: "c", IsActive: true, TotalPlays: 2, LastPlayedAt: playedAgo(3)},
			}
			scored := engine.Calculate(roster, settings)

			Convey("Then they are excluded", func() {
				So(len(scored), ShouldEqual, 2)
				for _, sp := range scored {
					So(sp.ID, ShouldNotEqual, "b")
				}
			})
		})

		Convey("When nobody is active", func() {
			scored := engine.Calculate([]model.Participant{{ID: "a"}}, settings)

			Convey("Then the distribution is empty, not an error", func() {
				So(scored, ShouldNotBeNil)
				So(len(scored), ShouldEqual, 0)
			})
		})

		Convey("When both weights are zero", func() {
			roster := []model.Participant{{ID: "a", IsActive: true}, {ID: "b", IsActive: true}, {ID: "c", IsActive: true}, {ID: "d", IsActive: true}}
			scored := engine.Calculate(roster, model.ProbabilitySettings{})

			Convey("Then the odds fall back to uniform", func() {
				for _, sp := range scored {
					So(sp.Probability, ShouldEqual, 25)
					So(math.IsNaN(sp.Probability), ShouldBeFalse)
				}
			})
		})

		Convey("When all values are zero", func() {
			roster := []model.Participant{
				{ID: "a", IsActive: true, LastPlayedAt: playedAgo(0)},
				{ID: "b", IsActive: true, LastPlayedAt: playedAgo(0)},
			}
			scored := engine.Calculate(roster, settings)

			Convey("Then the bases are floored at one and nothing divides by zero", func() {
				So(scored[0].DaysSinceLastPlay, ShouldEqual, 0)
				So(scored[0].Probability, ShouldAlmostEqual, 50, 1e-9)
				So(scored[1].Probability, ShouldAlmostEqual, 50, 1e-9)
			})
		})

		Convey("When weights are outside [0,1]", func() {
			roster := []model.Participant{{ID: "a", IsActive: true}, {ID: "b", IsActive: true, TotalPlays: 5, LastPlayedAt: playedAgo(2)}}
			clamped := engine.Calculate(roster, model.ProbabilitySettings{WeightLastPlayed: 1, WeightTotalPlays: 0})
			raw := engine.Calculate(roster, model.ProbabilitySettings{WeightLastPlayed: 7, WeightTotalPlays: -3})

			Convey("Then they are clamped before scoring", func() {
				So(raw[0].Probability, ShouldAlmostEqual, clamped[0].Probability, 1e-9)
			})
		})

		Convey("When last play lies in the future", func() {
			future := now.Add(48 * time.Hour)
			scored := engine.Calculate([]model.Participant{{ID: "a", IsActive: true, LastPlayedAt: &future}}, settings)

			Convey("Then days since last play is clamped at zero", func() {
				So(scored[0].DaysSinceLastPlay, ShouldEqual, 0)
				So(scored[0].Probability, ShouldEqual, 100)
			})
		})
	})
}

func TestEngine_CalculateProperties(t *testing.T) {
	Convey("Given random rosters and real jitter", t, func() {
		rng := rand.New(rand.NewPCG(7, 11))
		engine := probability.NewEngine(
			probability.WithClock(calendar.FixedClock{T: now}),
			probability.WithRandomSource(rng.Float64),
		)

		Convey("Then every distribution is non-negative and sums to 100", func() {
			for round := 0; round < 200; round++ {
				n := 1 + rng.IntN(12)
				roster := make([]model.Participant, n)
				for i := range roster {
					roster[i] = model.Participant{ID: string(rune('a' + i)), IsActive: true, TotalPlays: rng.IntN(30)}
					if rng.IntN(4) > 0 {
						roster[i].LastPlayedAt = playedAgo(rng.IntN(120))
					}
				}
				settings := model.ProbabilitySettings{WeightLastPlayed: rng.Float64(), WeightTotalPlays: rng.Float64()}
				scored := engine.Calculate(roster, settings)

				So(len(scored), ShouldEqual, n)
				So(sum(scored), ShouldAlmostEqual, 100, 1e-6)
				for i, sp := range scored {
					So(sp.Probability, ShouldBeGreaterThanOrEqualTo, 0)
					if i > 0 {
						So(sp.Probability, ShouldBeLessThanOrEqualTo, scored[i-1].Probability)
					}
				}
			}
		})
	})
}

func TestEngine_Select(t *testing.T) {
	Convey("Given a two-participant roster at 70/30", t, func() {
		roster := []model.ScoredParticipant{
			{Participant: model.Participant{ID: "a"}, Probability: 70},
			{Participant: model.Participant{ID: "b"}, Probability: 30},
		}

		Convey("When drawing 10,000 times", func() {
			rng := rand.New(rand.NewPCG(42, 1))
			engine := probability.NewEngine(probability.WithRandomSource(rng.Float64))
			wins := 0
			for i := 0; i < 10_000; i++ {
				winner, ok := engine.Select(roster)
				So(ok, ShouldBeTrue)
				if winner.ID == "a" {
					wins++
				}
			}

			Convey("Then A wins roughly 70% of the time", func() {
				So(wins, ShouldBeBetween, 6500, 7500)
			})
		})

		Convey("When the draw lands exactly on a boundary", func() {
			engine := probability.NewEngine(probability.WithRandomSource(constant(0.7)))
			winner, _ := engine.Select(roster)

			Convey("Then the first entry whose cumulative sum reaches it wins", func() {
				So(winner.ID, ShouldEqual, "a")
			})
		})
	})

	Convey("Given a list whose probabilities sum to slightly under 100", t, func() {
		roster := []model.ScoredParticipant{
			{Participant: model.Participant{ID: "a"}, Probability: 49.99},
			{Participant: model.Participant{ID: "b"}, Probability: 49.99},
		}
		engine := probability.NewEngine(probability.WithRandomSource(constant(0.9999)))

		Convey("Then the last entry is the fallback", func() {
			winner, ok := engine.Select(roster)
			So(ok, ShouldBeTrue)
			So(winner.ID, ShouldEqual, "b")
		})
	})

	Convey("Given an empty list", t, func() {
		engine := probability.NewEngine()

		Convey("Then there is no winner", func() {
			_, ok := engine.Select(nil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestEngine_JitterBreaksTies(t *testing.T) {
	Convey("Given identical participants", t, func() {
		rng := rand.New(rand.NewPCG(3, 5))
		engine := probability.NewEngine(
			probability.WithClock(calendar.FixedClock{T: now}),
			probability.WithRandomSource(rng.Float64),
		)
		roster := []model.Participant{{ID: "a", IsActive: true}, {ID: "b", IsActive: true}}
		settings := model.ProbabilitySettings{WeightLastPlayed: 0.5, WeightTotalPlays: 0.5}

		Convey("Then repeated calls do not always keep insertion order", func() {
			firsts := map[string]int{}
			for i := 0; i < 200; i++ {
				firsts[engine.Calculate(roster, settings)[0].ID]++
			}
			So(firsts["a"], ShouldBeGreaterThan, 0)
			So(firsts["b"], ShouldBeGreaterThan, 0)
		})
	})
}
