// Package calendar answers business-day and registration-window questions
// against an injected Clock.
//
// Core packages never call time.Now directly: the service owns a Clock and
// hands it down, so tests can pin the date and time of day.
package calendar

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time in a fixed location.
type RealClock struct {
	Loc *time.Location
}

// NewReal returns a Clock backed by the system time in loc (time.Local if nil).
func NewReal(loc *time.Location) RealClock {
	if loc == nil {
		loc = time.Local
	}
	return RealClock{Loc: loc}
}

// Now returns the current system time in the clock's location.
func (c RealClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.T
}

// FuncClock wraps a function as a Clock.
type FuncClock func() time.Time

// Now calls the wrapped function.
func (f FuncClock) Now() time.Time {
	return f()
}

// OverridableClock wraps a base Clock with an optional mock date.
//
// While a mock date is set, Now returns that calendar date combined with the
// base clock's time of day, so the registration window keeps following the
// wall clock. The override belongs to the instance that holds it; share one
// instance across concurrent tests and they will see each other's dates.
type OverridableClock struct {
	base Clock

	mu   sync.RWMutex
	mock *time.Time
}

// NewOverridable wraps base. A nil base uses the local real clock.
func NewOverridable(base Clock) *OverridableClock {
	if base == nil {
		base = NewReal(time.Local)
	}
	return &OverridableClock{base: base}
}

// Now returns the base time, moved onto the mock date when one is set.
func (c *OverridableClock) Now() time.Time {
	now := c.base.Now()
	c.mu.RLock()
	mock := c.mock
	c.mu.RUnlock()
	if mock == nil {
		return now
	}
	y, m, d := mock.Date()
	return time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
}

// SetMockDate pins "today" to the calendar date of d.
func (c *OverridableClock) SetMockDate(d time.Time) {
	md := Midnight(d)
	c.mu.Lock()
	c.mock = &md
	c.mu.Unlock()
}

// ClearMockDate returns to the base clock's date.
func (c *OverridableClock) ClearMockDate() {
	c.mu.Lock()
	c.mock = nil
	c.mu.Unlock()
}

// MockDate returns the current override, if any.
func (c *OverridableClock) MockDate() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mock == nil {
		return time.Time{}, false
	}
	return *c.mock, true
}

var (
	_ Clock = RealClock{}
	_ Clock = FixedClock{}
	_ Clock = FuncClock(nil)
	_ Clock = (*OverridableClock)(nil)
)
