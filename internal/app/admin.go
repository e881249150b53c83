package service

import (
	"context"
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
)

// GetSettings returns the probability weights and the registration lock.
func (s *Service) GetSettings(ctx context.Context) (model.Settings, error) {
	c, err := s.parts()
	if err != nil {
		return model.Settings{}, err
	}
	return c.store.GetSettings(ctx)
}

// UpdateProbabilitySettings stores new weights; each must lie in [0,1].
func (s *Service) UpdateProbabilitySettings(ctx context.Context, ps model.ProbabilitySettings) (model.Settings, error) {
	c, err := s.parts()
	if err != nil {
		return model.Settings{}, err
	}
	if err := ps.Validate(); err != nil {
		return model.Settings{}, err
	}
	st, err := c.store.UpdateProbabilitySettings(ctx, ps)
	if err != nil {
		return model.Settings{}, err
	}
	s.logger.Info(ctx, "probability settings updated",
		logger.Float64("weightLastPlayed", ps.WeightLastPlayed),
		logger.Float64("weightTotalPlays", ps.WeightTotalPlays),
	)
	return st, nil
}

// MockDateAllowed reports whether the debug date override is enabled.
func (s *Service) MockDateAllowed() bool { return s.allowMockDate }

// GetMockDate reports the current override.
func (s *Service) GetMockDate() (types.MockDate, error) {
	c, err := s.parts()
	if err != nil {
		return types.MockDate{}, err
	}
	return mockDateView(c.clock), nil
}

// SetMockDate pins "today" to date while keeping the wall-clock time of day.
func (s *Service) SetMockDate(ctx context.Context, date time.Time) (types.MockDate, error) {
	c, err := s.parts()
	if err != nil {
		return types.MockDate{}, err
	}
	if !s.allowMockDate {
		return types.MockDate{}, ErrMockDateDisabled
	}
	c.clock.SetMockDate(date)
	s.logger.Warn(ctx, "mock date set", logger.String("date", calendar.FormatDate(date)))
	return mockDateView(c.clock), nil
}

// ClearMockDate returns to the real date.
func (s *Service) ClearMockDate(ctx context.Context) (types.MockDate, error) {
	c, err := s.parts()
	if err != nil {
		return types.MockDate{}, err
	}
	if !s.allowMockDate {
		return types.MockDate{}, ErrMockDateDisabled
	}
	c.clock.ClearMockDate()
	s.logger.Info(ctx, "mock date cleared")
	return mockDateView(c.clock), nil
}

func mockDateView(clock *calendar.OverridableClock) types.MockDate {
	out := types.MockDate{Now: clock.Now().Format(time.RFC3339)}
	if d, ok := clock.MockDate(); ok {
		out.Active = true
		out.Date = calendar.FormatDate(d)
	}
	return out
}
