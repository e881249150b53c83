// Package types contains the request and response shapes shared by the
// service, the HTTP API and the wheelctl client.
package types

import (
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
)

// Spin statuses.
const (
	SpinWinner               = "winner"
	SpinNoActiveParticipants = "no_active_participants"
)

// Session is the wire shape of a daily session; Date is YYYY-MM-DD.
type Session struct {
	ID         string              `json:"id"`
	Date       string              `json:"date"`
	DJID       string              `json:"djId,omitempty"`
	DJName     string              `json:"djName"`
	Status     model.SessionStatus `json:"status"`
	YoutubeURL string              `json:"youtubeUrl,omitempty"`
	VideoID    string              `json:"videoId,omitempty"`
	Title      string              `json:"title,omitempty"`
	Artist     string              `json:"artist,omitempty"`
	SkipReason string              `json:"skipReason,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// NewSession converts a domain session.
func NewSession(s model.Session) Session {
	return Session{
		ID:         s.ID,
		Date:       calendar.FormatDate(s.Date),
		DJID:       s.DJID,
		DJName:     s.DJName,
		Status:     s.Status,
		YoutubeURL: s.YoutubeURL,
		VideoID:    s.VideoID,
		Title:      s.Title,
		Artist:     s.Artist,
		SkipReason: s.SkipReason,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// NewSessions converts a slice of domain sessions.
func NewSessions(in []model.Session) []Session {
	out := make([]Session, len(in))
	for i, s := range in {
		out[i] = NewSession(s)
	}
	return out
}

// HistoryEntry is the wire shape of a history row; PlayedAt is YYYY-MM-DD.
type HistoryEntry struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId,omitempty"`
	DJName     string `json:"djName"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	YoutubeURL string `json:"youtubeUrl"`
	VideoID    string `json:"videoId"`
	PlayedAt   string `json:"playedAt"`
}

// NewHistory converts domain history entries.
func NewHistory(in []model.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(in))
	for i, e := range in {
		out[i] = HistoryEntry{
			ID:         e.ID,
			SessionID:  e.SessionID,
			DJName:     e.DJName,
			Title:      e.Title,
			Artist:     e.Artist,
			YoutubeURL: e.YoutubeURL,
			VideoID:    e.VideoID,
			PlayedAt:   calendar.FormatDate(e.PlayedAt),
		}
	}
	return out
}

// Registration is the gate decision as served by GET /registration.
type Registration struct {
	CanRegister     bool                  `json:"canRegister"`
	ReasonCode      string                `json:"reasonCode"`
	Window          calendar.WindowStatus `json:"window"`
	Today           string                `json:"today"`
	NextBusinessDay string                `json:"nextBusinessDay"`
	CurrentHour     int                   `json:"currentHour"`
}

// Postponement pairs the skipped session with the one that now carries its
// participant.
type Postponement struct {
	Postponed Session `json:"postponed"`
	Next      Session `json:"next"`
}

// Completion is the result of completing a session.
type Completion struct {
	Session     Session            `json:"session"`
	History     HistoryEntry       `json:"history"`
	Participant *model.Participant `json:"participant,omitempty"`
}

// SpinResult is the outcome of a wheel spin. Winner is nil when Status is
// SpinNoActiveParticipants.
type SpinResult struct {
	Status       string                    `json:"status"`
	Winner       *model.ScoredParticipant  `json:"winner,omitempty"`
	Roster       []model.ScoredParticipant `json:"roster"`
	Registration Registration              `json:"registration"`
}

// Upcoming holds today's and the next business day's sessions, if any.
type Upcoming struct {
	Today           *Session `json:"today"`
	NextBusinessDay *Session `json:"nextBusinessDay"`
}

// Stats summarizes stored data for GET /stats.
type Stats struct {
	Started            bool           `json:"started"`
	StoreDriver        string         `json:"storeDriver"`
	Participants       int            `json:"participants"`
	ActiveParticipants int            `json:"activeParticipants"`
	SessionsByStatus   map[string]int `json:"sessionsByStatus"`
	HistoryEntries     int            `json:"historyEntries"`
	MockDate           string         `json:"mockDate,omitempty"`
}

// MockDate reports the debug clock override.
type MockDate struct {
	Active bool   `json:"active"`
	Date   string `json:"date,omitempty"`
	Now    string `json:"now"`
}

// ErrorResponse is the body of every non-2xx API response. Existing is set
// when a session create hits a taken date.
type ErrorResponse struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Existing *Session `json:"existing,omitempty"`
}
