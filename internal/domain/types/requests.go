package types

// CreateParticipantRequest is the body of POST /participants. IsActive
// defaults to true.
type CreateParticipantRequest struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Color    string `json:"color,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// UpdateParticipantRequest is the body of PATCH /participants/{id}. Nil
// fields are left unchanged; LastPlayedAt is YYYY-MM-DD.
type UpdateParticipantRequest struct {
	Name         *string `json:"name,omitempty"`
	Avatar       *string `json:"avatar,omitempty"`
	Color        *string `json:"color,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
	TotalPlays   *int    `json:"totalPlays,omitempty"`
	LastPlayedAt *string `json:"lastPlayedAt,omitempty"`
}

// RecordPlayRequest is the body of POST /participants/{id}/plays. An empty
// PlayedAt means today.
type RecordPlayRequest struct {
	PlayedAt string `json:"playedAt,omitempty"`
}

// ConfirmRequest is the body of POST /wheel/confirm.
type ConfirmRequest struct {
	ParticipantID string `json:"participantId"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Date          string `json:"date"`
	ParticipantID string `json:"participantId"`
}

// CompleteSessionRequest is the body of POST /sessions/{id}/complete.
// SkipPlayRecord leaves participant counters untouched, for backfills.
type CompleteSessionRequest struct {
	YoutubeURL     string `json:"youtubeUrl"`
	Title          string `json:"title,omitempty"`
	Artist         string `json:"artist,omitempty"`
	SkipPlayRecord bool   `json:"skipPlayRecord,omitempty"`
}

// SkipSessionRequest is the body of POST /sessions/{id}/skip.
type SkipSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// PostponeSessionRequest is the body of POST /sessions/{id}/postpone.
// OverrideDate replaces the session date as the base for the next
// business day.
type PostponeSessionRequest struct {
	OverrideDate string `json:"overrideDate,omitempty"`
}

// MockDateRequest is the body of PUT /debug/mock-date.
type MockDateRequest struct {
	Date string `json:"date"`
}
