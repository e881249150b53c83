package model

import "time"

// SessionStatus is the lifecycle state of a daily session.
type SessionStatus string

// Session states. Completed and skipped are terminal.
const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionSkipped   SessionStatus = "skipped"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionCompleted, SessionSkipped:
		return true
	}
	return false
}

// Session is one calendar day's hosting slot. Date is unique across sessions.
//
// DJName is a snapshot taken at assignment time; renaming the participant
// later does not rewrite it. Empty optional fields mean "unset".
type Session struct {
	ID         string        `json:"id"`
	Date       time.Time     `json:"-"`
	DJID       string        `json:"djId,omitempty"`
	DJName     string        `json:"djName"`
	Status     SessionStatus `json:"status"`
	YoutubeURL string        `json:"youtubeUrl,omitempty"`
	VideoID    string        `json:"videoId,omitempty"`
	Title      string        `json:"title,omitempty"`
	Artist     string        `json:"artist,omitempty"`
	SkipReason string        `json:"skipReason,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// IsPending reports whether the session can still transition.
func (s Session) IsPending() bool {
	return s.Status == SessionPending
}

// HistoryEntry is the immutable record of a completed blindtest.
type HistoryEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId,omitempty"`
	DJName     string    `json:"djName"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	YoutubeURL string    `json:"youtubeUrl"`
	VideoID    string    `json:"videoId"`
	PlayedAt   time.Time `json:"playedAt"`
}
