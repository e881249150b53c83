package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/blindtest/internal/domain/model"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned by ParseDate for malformed input.
var ErrInvalidDate = fmt.Errorf("%w: invalid date", model.ErrValidation)

// IsBusinessDay reports whether t falls on Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextBusinessDay normalizes from to midnight, optionally steps past it, and
// returns the first business day on or after the result.
func NextBusinessDay(from time.Time, skipToday bool) time.Time {
	d := Midnight(from)
	if skipToday {
		d = d.AddDate(0, 0, 1)
	}
	// At most two weekend days to cross.
	for i := 0; i < 7 && !IsBusinessDay(d); i++ {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Today returns the clock's current date at local midnight.
func Today(c Clock) time.Time {
	return Midnight(c.Now())
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidDate, s, err)
	}
	return t, nil
}

// FormatDate renders t's calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SameDay reports whether a and b share a calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
