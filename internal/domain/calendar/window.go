package calendar

import "time"

// WindowState tags where the current time sits relative to the window.
type WindowState string

// Window states.
const (
	WindowNotYetOpen WindowState = "not_yet_open"
	WindowOpen       WindowState = "open"
	WindowClosed     WindowState = "closed"
)

// WindowStatus is the tagged result of Window.Status. MinutesLeft is only
// meaningful when State is WindowOpen.
type WindowStatus struct {
	State       WindowState `json:"state"`
	MinutesLeft int         `json:"minutesLeft"`
}

// Window is the daily registration window [OpenHour, CloseHour) in local time.
type Window struct {
	OpenHour  int
	CloseHour int
}

// DefaultWindow is 10:00 to 11:00.
var DefaultWindow = Window{OpenHour: 10, CloseHour: 11}

// IsOpen reports whether now's local hour is inside the window.
func (w Window) IsOpen(now time.Time) bool {
	h := now.Hour()
	return h >= w.OpenHour && h < w.CloseHour
}

// Status classifies now against the window.
func (w Window) Status(now time.Time) WindowStatus {
	switch {
	case now.Hour() < w.OpenHour:
		return WindowStatus{State: WindowNotYetOpen}
	case now.Hour() >= w.CloseHour:
		return WindowStatus{State: WindowClosed}
	}
	elapsed := now.Hour()*60 + now.Minute()
	return WindowStatus{State: WindowOpen, MinutesLeft: w.CloseHour*60 - elapsed}
}

// TimeLeft returns the minutes remaining in the window, or -1 when it is not
// open. Prefer Status, which tells "not yet" from "closed".
func (w Window) TimeLeft(now time.Time) int {
	st := w.Status(now)
	if st.State != WindowOpen {
		return -1
	}
	return st.MinutesLeft
}
