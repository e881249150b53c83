package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/session"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
	"github.com/okian/blindtest/pkg/metrics"
)

// CreatePendingSession assigns participantID to date. A taken date returns
// a *session.ConflictError carrying the existing session.
func (s *Service) CreatePendingSession(ctx context.Context, date time.Time, participantID string) (types.Session, error) {
	c, err := s.parts()
	if err != nil {
		return types.Session{}, err
	}
	p, err := c.store.GetParticipant(ctx, participantID)
	if err != nil {
		return types.Session{}, fmt.Errorf("participant %s: %w", participantID, err)
	}
	created, err := c.machine.Create(ctx, date, p.ID, p.Name)
	if err != nil {
		return types.Session{}, err
	}
	s.logger.Info(ctx, "session created",
		logger.String("sessionId", created.ID),
		logger.String("date", calendar.FormatDate(created.Date)),
		logger.String("participant", p.Name),
	)
	return types.NewSession(created), nil
}

// GetSession returns one session.
func (s *Service) GetSession(ctx context.Context, id string) (types.Session, error) {
	c, err := s.parts()
	if err != nil {
		return types.Session{}, err
	}
	sess, err := c.store.GetSession(ctx, id)
	if err != nil {
		return types.Session{}, fmt.Errorf("session %s: %w", id, err)
	}
	return types.NewSession(sess), nil
}

// ListSessions returns sessions dated within [from, to]; zero bounds are open.
func (s *Service) ListSessions(ctx context.Context, from, to time.Time) ([]types.Session, error) {
	c, err := s.parts()
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s before start %s", model.ErrValidation, calendar.FormatDate(to), calendar.FormatDate(from))
	}
	sessions, err := c.store.ListSessions(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return types.NewSessions(sessions), nil
}

// Upcoming returns today's session and the next business day's, either of
// which may be absent.
func (s *Service) Upcoming(ctx context.Context) (types.Upcoming, error) {
	c, err := s.parts()
	if err != nil {
		return types.Upcoming{}, err
	}
	today := calendar.Today(c.clock)

	var out types.Upcoming
	for _, slot := range []struct {
		date time.Time
		dst  **types.Session
	}{
		{today, &out.Today},
		{calendar.NextBusinessDay(today, true), &out.NextBusinessDay},
	} {
		sess, err := c.store.FindSessionByDate(ctx, slot.date)
		switch {
		case err == nil:
			v := types.NewSession(sess)
			*slot.dst = &v
		case !errors.Is(err, model.ErrNotFound):
			return types.Upcoming{}, err
		}
	}
	return out, nil
}

// CompleteSession attaches media to a pending session and writes history.
// The DJ's play is then recorded unless req.SkipPlayRecord is set; a failure
// there is logged and does not undo the completion.
func (s *Service) CompleteSession(ctx context.Context, id string, req types.CompleteSessionRequest) (types.Completion, error) {
	c, err := s.parts()
	if err != nil {
		return types.Completion{}, err
	}

	done, entry, err := c.machine.Complete(ctx, id, session.CompleteInput{
		YoutubeURL: req.YoutubeURL,
		Title:      req.Title,
		Artist:     req.Artist,
	})
	if err != nil {
		return types.Completion{}, err
	}
	s.logger.Info(ctx, "session completed",
		logger.String("sessionId", done.ID),
		logger.String("date", calendar.FormatDate(done.Date)),
		logger.String("videoId", done.VideoID),
	)

	out := types.Completion{
		Session: types.NewSession(done),
		History: types.NewHistory([]model.HistoryEntry{entry})[0],
	}
	if req.SkipPlayRecord || done.DJID == "" {
		return out, nil
	}

	p, err := c.store.RecordPlay(ctx, done.DJID, done.Date)
	if err != nil {
		s.logger.Error(ctx, "record play after completion failed",
			logger.String("sessionId", done.ID),
			logger.String("participantId", done.DJID),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("service", "record_play")
		return out, nil
	}
	metrics.RecordPlay()
	out.Participant = &p
	return out, nil
}

// SkipSession skips a pending session.
func (s *Service) SkipSession(ctx context.Context, id, reason string) (types.Session, error) {
	c, err := s.parts()
	if err != nil {
		return types.Session{}, err
	}
	skipped, err := c.machine.Skip(ctx, id, reason)
	if err != nil {
		return types.Session{}, err
	}
	s.logger.Info(ctx, "session skipped",
		logger.String("sessionId", skipped.ID),
		logger.String("reason", skipped.SkipReason),
	)
	return types.NewSession(skipped), nil
}

// PostponeSession moves a pending session's participant to the next
// business day after its date, or after override when given.
func (s *Service) PostponeSession(ctx context.Context, id string, override *time.Time) (types.Postponement, error) {
	c, err := s.parts()
	if err != nil {
		return types.Postponement{}, err
	}
	res, err := c.machine.Postpone(ctx, id, override)
	if err != nil {
		return types.Postponement{}, err
	}
	s.logger.Info(ctx, "session postponed",
		logger.String("sessionId", res.Postponed.ID),
		logger.String("from", calendar.FormatDate(res.Postponed.Date)),
		logger.String("to", calendar.FormatDate(res.Next.Date)),
		logger.String("participant", res.Next.DJName),
	)
	return types.Postponement{
		Postponed: types.NewSession(res.Postponed),
		Next:      types.NewSession(res.Next),
	}, nil
}

// ListHistory returns completed blindtests newest first.
func (s *Service) ListHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	c, err := s.parts()
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", model.ErrValidation, limit)
	}
	entries, err := c.store.ListHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	return types.NewHistory(entries), nil
}
