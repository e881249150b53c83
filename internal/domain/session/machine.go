// Package session implements the daily session lifecycle: creation, and the
// pending -> completed | skipped transitions, including postponement.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/media"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/pkg/metrics"
)

// Defaults applied when callers leave optional fields empty.
const (
	DefaultTitle      = "Untitled"
	DefaultSkipReason = "No reason given"
	PostponedReason   = "postponed"
)

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used for timestamps.
func WithClock(c calendar.Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithDefaultTitle sets the title used when Complete receives none.
func WithDefaultTitle(title string) Option {
	return func(m *Machine) {
		if strings.TrimSpace(title) != "" {
			m.defaultTitle = title
		}
	}
}

// WithDefaultSkipReason sets the reason used when Skip receives none.
func WithDefaultSkipReason(reason string) Option {
	return func(m *Machine) {
		if strings.TrimSpace(reason) != "" {
			m.defaultSkipReason = reason
		}
	}
}

// WithIDGenerator overrides how session and history ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(m *Machine) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// Machine drives session transitions against a Store.
type Machine struct {
	store             Store
	clock             calendar.Clock
	defaultTitle      string
	defaultSkipReason string
	newID             func() string
}

// NewMachine returns a Machine backed by store.
func NewMachine(store Store, opts ...Option) *Machine {
	m := &Machine{
		store:             store,
		clock:             calendar.NewReal(time.Local),
		defaultTitle:      DefaultTitle,
		defaultSkipReason: DefaultSkipReason,
		newID:             uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CompleteInput carries the media details of a completed session.
type CompleteInput struct {
	YoutubeURL string
	Title      string
	Artist     string
}

// PostponeResult holds both sides of a postponement.
type PostponeResult struct {
	Postponed model.Session `json:"postponed"`
	Next      model.Session `json:"next"`
}

// Create makes a pending session for date. When the date is already taken
// it returns a *ConflictError carrying the existing session and writes
// nothing.
func (m *Machine) Create(ctx context.Context, date time.Time, participantID, participantName string) (model.Session, error) {
	date = calendar.Midnight(date)
	if existing, err := m.store.FindSessionByDate(ctx, date); err == nil {
		return model.Session{}, &ConflictError{Existing: existing}
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.Session{}, fmt.Errorf("find session for %s: %w", calendar.FormatDate(date), err)
	}

	now := m.clock.Now()
	created, err := m.store.CreateSession(ctx, model.Session{
		ID:        m.newID(),
		Date:      date,
		DJID:      participantID,
		DJName:    participantName,
		Status:    model.SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			// Lost a race with another creator; report what won.
			if existing, ferr := m.store.FindSessionByDate(ctx, date); ferr == nil {
				return model.Session{}, &ConflictError{Existing: existing}
			}
		}
		return model.Session{}, fmt.Errorf("create session for %s: %w", calendar.FormatDate(date), err)
	}

	metrics.RecordSessionTransition(metrics.TransitionCreated)
	return created, nil
}

// Reassign points an existing session at another participant and forces it
// back to pending. Media and skip details are cleared. It does not check the
// current status: the last write wins.
func (m *Machine) Reassign(ctx context.Context, id, participantID, participantName string) (model.Session, error) {
	s, err := m.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	updated, err := m.store.UpdateSession(ctx, m.reset(s, participantID, participantName))
	if err != nil {
		return model.Session{}, fmt.Errorf("reassign session %s: %w", id, err)
	}
	metrics.RecordSessionTransition(metrics.TransitionReassigned)
	return updated, nil
}

// Complete marks a pending session completed and appends the matching
// history entry in one atomic step. An invalid URL fails before anything is
// written.
func (m *Machine) Complete(ctx context.Context, id string, in CompleteInput) (model.Session, model.HistoryEntry, error) {
	url := strings.TrimSpace(in.YoutubeURL)
	if err := media.ValidateURL(url); err != nil {
		return model.Session{}, model.HistoryEntry{}, err
	}

	var (
		done  model.Session
		entry model.HistoryEntry
	)
	err := m.store.Atomically(ctx, func(ctx context.Context) error {
		s, err := m.store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if !s.IsPending() {
			return &TransitionError{SessionID: id, From: s.Status, To: model.SessionCompleted}
		}

		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = m.defaultTitle
		}
		artist := strings.TrimSpace(in.Artist)
		if artist == "" {
			artist = s.DJName
		}

		s.Status = model.SessionCompleted
		s.YoutubeURL = url
		s.VideoID = media.VideoID(url)
		s.Title = title
		s.Artist = artist
		s.UpdatedAt = m.clock.Now()
		if done, err = m.store.UpdateSession(ctx, s); err != nil {
			return fmt.Errorf("update session %s: %w", id, err)
		}

		entry, err = m.store.AppendHistoryEntry(ctx, model.HistoryEntry{
			ID:         m.newID(),
			SessionID:  s.ID,
			DJName:     s.DJName,
			Title:      title,
			Artist:     artist,
			YoutubeURL: url,
			VideoID:    s.VideoID,
			PlayedAt:   s.Date,
		})
		if err != nil {
			return fmt.Errorf("append history for session %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return model.Session{}, model.HistoryEntry{}, err
	}

	metrics.RecordSessionTransition(metrics.TransitionCompleted)
	metrics.RecordHistoryAppend()
	return done, entry, nil
}

// Skip marks a pending session skipped. An empty reason gets the default.
func (m *Machine) Skip(ctx context.Context, id, reason string) (model.Session, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = m.defaultSkipReason
	}

	var skipped model.Session
	err := m.store.Atomically(ctx, func(ctx context.Context) error {
		var err error
		skipped, err = m.skip(ctx, id, reason)
		return err
	})
	if err != nil {
		return model.Session{}, err
	}
	metrics.RecordSessionTransition(metrics.TransitionSkipped)
	return skipped, nil
}

// Postpone skips a pending session with reason "postponed" and carries its
// participant to the next business day strictly after the session's date,
// or after override when given. A session already on that day is taken over
// and forced back to pending.
func (m *Machine) Postpone(ctx context.Context, id string, override *time.Time) (PostponeResult, error) {
	var res PostponeResult
	err := m.store.Atomically(ctx, func(ctx context.Context) error {
		current, err := m.store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return &TransitionError{SessionID: id, From: current.Status, To: model.SessionSkipped}
		}

		base := current.Date
		if override != nil {
			base = *override
		}
		target := calendar.NextBusinessDay(base, true)
		if calendar.SameDay(target, current.Date) {
			target = calendar.NextBusinessDay(target, true)
		}

		if res.Postponed, err = m.skip(ctx, id, PostponedReason); err != nil {
			return err
		}

		existing, err := m.store.FindSessionByDate(ctx, target)
		switch {
		case err == nil:
			res.Next, err = m.store.UpdateSession(ctx, m.reset(existing, current.DJID, current.DJName))
			if err != nil {
				return fmt.Errorf("carry session to %s: %w", calendar.FormatDate(target), err)
			}
		case errors.Is(err, model.ErrNotFound):
			now := m.clock.Now()
			res.Next, err = m.store.CreateSession(ctx, model.Session{
				ID:        m.newID(),
				Date:      target,
				DJID:      current.DJID,
				DJName:    current.DJName,
				Status:    model.SessionPending,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("create session for %s: %w", calendar.FormatDate(target), err)
			}
		default:
			return fmt.Errorf("find session for %s: %w", calendar.FormatDate(target), err)
		}
		return nil
	})
	if err != nil {
		return PostponeResult{}, err
	}
	metrics.RecordSessionTransition(metrics.TransitionPostponed)
	return res, nil
}

func (m *Machine) skip(ctx context.Context, id, reason string) (model.Session, error) {
	s, err := m.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if !s.IsPending() {
		return model.Session{}, &TransitionError{SessionID: id, From: s.Status, To: model.SessionSkipped}
	}
	s.Status = model.SessionSkipped
	s.SkipReason = reason
	s.UpdatedAt = m.clock.Now()
	updated, err := m.store.UpdateSession(ctx, s)
	if err != nil {
		return model.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	return updated, nil
}

func (m *Machine) reset(s model.Session, participantID, participantName string) model.Session {
	s.DJID = participantID
	s.DJName = participantName
	s.Status = model.SessionPending
	s.YoutubeURL = ""
	s.VideoID = ""
	s.Title = ""
	s.Artist = ""
	s.SkipReason = ""
	s.UpdatedAt = m.clock.Now()
	return s
}
