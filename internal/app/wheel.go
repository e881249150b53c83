package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/registration"
	"github.com/okian/blindtest/internal/domain/session"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
	"github.com/okian/blindtest/pkg/metrics"
)

// GetScoredRoster scores the active roster with the stored weights, most
// likely first.
func (s *Service) GetScoredRoster(ctx context.Context) ([]model.ScoredParticipant, error) {
	c, err := s.parts()
	if err != nil {
		return nil, err
	}
	participants, err := c.store.ListParticipants(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	settings, err := c.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	roster := c.engine.Calculate(participants, settings.Probability)
	if roster == nil {
		roster = []model.ScoredParticipant{}
	}
	metrics.UpdateActiveParticipants(len(roster))
	return roster, nil
}

// PickWinner draws one participant from a scored roster. ok is false when
// the roster is empty.
func (s *Service) PickWinner(roster []model.ScoredParticipant) (model.ScoredParticipant, bool, error) {
	c, err := s.parts()
	if err != nil {
		return model.ScoredParticipant{}, false, err
	}
	winner, ok := c.engine.Select(roster)
	metrics.RecordSpin(ok, winner.Probability)
	return winner, ok, nil
}

// Spin scores the roster and draws a winner. The gate decision is always
// reported; with enforce it must be open or ErrRegistrationClosed is returned.
func (s *Service) Spin(ctx context.Context, enforce bool) (types.SpinResult, error) {
	c, err := s.parts()
	if err != nil {
		return types.SpinResult{}, err
	}

	decision, err := c.gate.CanRegister(ctx)
	if err != nil {
		return types.SpinResult{}, err
	}
	res := types.SpinResult{Registration: registrationView(decision)}
	if enforce && !decision.CanRegister {
		return res, fmt.Errorf("%w: %s", ErrRegistrationClosed, decision.Reason)
	}

	if res.Roster, err = s.GetScoredRoster(ctx); err != nil {
		return types.SpinResult{}, err
	}
	winner, ok, err := s.PickWinner(res.Roster)
	if err != nil {
		return types.SpinResult{}, err
	}
	if !ok {
		s.logger.Warn(ctx, "spin with no active participants")
		res.Status = types.SpinNoActiveParticipants
		return res, nil
	}

	res.Status = types.SpinWinner
	res.Winner = &winner
	s.logger.Info(ctx, "winner selected",
		logger.String("participantId", winner.ID),
		logger.String("participant", winner.Name),
		logger.Float64("probability", winner.Probability),
		logger.Int("rosterSize", len(res.Roster)),
	)
	return res, nil
}

// ConfirmWinner assigns participantID to the next business day and locks
// registration for today. The gate must be open. A non-completed session
// already on that day is taken over.
func (s *Service) ConfirmWinner(ctx context.Context, participantID string) (types.Session, error) {
	c, err := s.parts()
	if err != nil {
		return types.Session{}, err
	}

	var confirmed model.Session
	err = c.store.Atomically(ctx, func(ctx context.Context) error {
		decision, err := c.gate.CanRegister(ctx)
		if err != nil {
			return err
		}
		if !decision.CanRegister {
			return fmt.Errorf("%w: %s", ErrRegistrationClosed, decision.Reason)
		}

		p, err := c.store.GetParticipant(ctx, participantID)
		if err != nil {
			return fmt.Errorf("participant %s: %w", participantID, err)
		}
		if !p.IsActive {
			return fmt.Errorf("%w: %s", ErrInactiveParticipant, p.Name)
		}

		confirmed, err = c.machine.Create(ctx, decision.NextBusinessDay, p.ID, p.Name)
		var conflict *session.ConflictError
		if errors.As(err, &conflict) {
			if conflict.Existing.Status == model.SessionCompleted {
				return err
			}
			confirmed, err = c.machine.Reassign(ctx, conflict.Existing.ID, p.ID, p.Name)
		}
		if err != nil {
			return err
		}

		_, err = c.gate.Lock(ctx)
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "confirm winner failed", logger.String("participantId", participantID), logger.Error(err))
		return types.Session{}, err
	}

	s.logger.Info(ctx, "winner confirmed",
		logger.String("participant", confirmed.DJName),
		logger.String("date", calendar.FormatDate(confirmed.Date)),
		logger.String("sessionId", confirmed.ID),
	)
	return types.NewSession(confirmed), nil
}

// CanRegisterNow evaluates the registration gate.
func (s *Service) CanRegisterNow(ctx context.Context) (types.Registration, error) {
	c, err := s.parts()
	if err != nil {
		return types.Registration{}, err
	}
	decision, err := c.gate.CanRegister(ctx)
	if err != nil {
		return types.Registration{}, err
	}
	return registrationView(decision), nil
}

// LockRegistrationForToday stamps today as locked. Safe to repeat.
func (s *Service) LockRegistrationForToday(ctx context.Context) (model.RegistrationLock, error) {
	c, err := s.parts()
	if err != nil {
		return model.RegistrationLock{}, err
	}
	lock, err := c.gate.Lock(ctx)
	if err != nil {
		return model.RegistrationLock{}, err
	}
	s.logger.Info(ctx, "registration locked", logger.String("date", lock.LastRegistrationDate))
	return lock, nil
}

func registrationView(d registration.Decision) types.Registration {
	return types.Registration{
		CanRegister:     d.CanRegister,
		ReasonCode:      string(d.Reason),
		Window:          d.Window,
		Today:           calendar.FormatDate(d.Today),
		NextBusinessDay: calendar.FormatDate(d.NextBusinessDay),
		CurrentHour:     d.CurrentHour(),
	}
}
