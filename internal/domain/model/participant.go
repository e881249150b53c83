// Package model contains domain models passed between layers.
package model

import "time"

// Participant is a person in the hosting rotation (a "DJ").
type Participant struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Avatar       string     `json:"avatar"`
	Color        string     `json:"color"`
	TotalPlays   int        `json:"totalPlays"`
	LastPlayedAt *time.Time `json:"lastPlayedAt"` // nil: never played
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ScoredParticipant is a Participant with its selection odds. It is computed
// fresh on every request and never stored.
type ScoredParticipant struct {
	Participant
	DaysSinceLastPlay int     `json:"daysSinceLastPlay"`
	RawScore          float64 `json:"rawScore"`
	Probability       float64 `json:"probability"` // percent, 0-100
}
