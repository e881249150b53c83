// Package registration decides whether a winner may be locked in right now.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/pkg/metrics"
)

// Reason explains a gate decision. Checks run in declaration order and the
// first failing one wins.
type Reason string

// Reason codes.
const (
	ReasonWeekend       Reason = "weekend"
	ReasonWindowNotOpen Reason = "window_not_open"
	ReasonWindowClosed  Reason = "window_closed"
	ReasonAlreadyLocked Reason = "already_locked"
	ReasonSessionExists Reason = "session_exists"
	ReasonOK            Reason = "ok"
)

// Store is the persistence the gate reads and writes.
type Store interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	FindSessionByDate(ctx context.Context, date time.Time) (model.Session, error)
	LockRegistration(ctx context.Context, date string) (model.Settings, error)
}

// Decision is the outcome of CanRegister with the facts behind it.
type Decision struct {
	CanRegister     bool
	Reason          Reason
	Window          calendar.WindowStatus
	Now             time.Time
	Today           time.Time
	NextBusinessDay time.Time
}

// CurrentHour is the local hour the decision was taken at.
func (d Decision) CurrentHour() int { return d.Now.Hour() }

// Option configures a Gate.
type Option func(*Gate)

// WithWindow sets the daily registration window.
func WithWindow(w calendar.Window) Option {
	return func(g *Gate) {
		if w.OpenHour >= 0 && w.OpenHour < w.CloseHour && w.CloseHour <= 24 {
			g.window = w
		}
	}
}

// WithClock sets the clock decisions are taken against.
func WithClock(c calendar.Clock) Option {
	return func(g *Gate) {
		if c != nil {
			g.clock = c
		}
	}
}

// Gate combines the calendar, the window, the daily lock and the
// next-day session into a single yes/no.
type Gate struct {
	store  Store
	clock  calendar.Clock
	window calendar.Window
}

// NewGate returns a Gate over store.
func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		clock:  calendar.NewReal(time.Local),
		window: calendar.DefaultWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Window returns the configured registration window.
func (g *Gate) Window() calendar.Window { return g.window }

// CanRegister evaluates the gate at the clock's current time.
func (g *Gate) CanRegister(ctx context.Context) (Decision, error) {
	now := g.clock.Now()
	d := Decision{
		Reason:          ReasonOK,
		Window:          g.window.Status(now),
		Now:             now,
		Today:           calendar.Midnight(now),
		NextBusinessDay: calendar.NextBusinessDay(now, true),
	}

	reason, err := g.evaluate(ctx, d)
	if err != nil {
		return Decision{}, err
	}
	d.Reason = reason
	d.CanRegister = reason == ReasonOK
	metrics.RecordRegistrationDecision(string(reason))
	return d, nil
}

func (g *Gate) evaluate(ctx context.Context, d Decision) (Reason, error) {
	if !calendar.IsBusinessDay(d.Today) {
		return ReasonWeekend, nil
	}
	switch d.Window.State {
	case calendar.WindowNotYetOpen:
		return ReasonWindowNotOpen, nil
	case calendar.WindowClosed:
		return ReasonWindowClosed, nil
	}

	settings, err := g.store.GetSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("read registration lock: %w", err)
	}
	if settings.Lock.LockedOn(calendar.FormatDate(d.Today)) {
		return ReasonAlreadyLocked, nil
	}

	next, err := g.store.FindSessionByDate(ctx, d.NextBusinessDay)
	switch {
	case err == nil && next.IsPending():
		return ReasonSessionExists, nil
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return "", fmt.Errorf("find session for %s: %w", calendar.FormatDate(d.NextBusinessDay), err)
	}
	return ReasonOK, nil
}

// Lock stamps today as locked. Repeating it on the same day is a no-op.
func (g *Gate) Lock(ctx context.Context) (model.RegistrationLock, error) {
	today := calendar.FormatDate(calendar.Today(g.clock))
	settings, err := g.store.LockRegistration(ctx, today)
	if err != nil {
		return model.RegistrationLock{}, fmt.Errorf("lock registration for %s: %w", today, err)
	}
	metrics.RecordRegistrationLock()
	return settings.Lock, nil
}
