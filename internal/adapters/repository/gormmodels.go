package repository

import (
	"time"

	"github.com/okian/blindtest/internal/domain/model"
)

// Timestamps are written by the domain layer's clock, so gorm's automatic
// time tracking is switched off on every row.

type participantRow struct {
	ID           string     `gorm:"primaryKey;size:36"`
	Name         string     `gorm:"size:191;not null;uniqueIndex"`
	Avatar       string     `gorm:"size:512"`
	Color        string     `gorm:"size:32"`
	TotalPlays   int        `gorm:"not null"`
	LastPlayedAt *time.Time `gorm:"index"`
	IsActive     bool       `gorm:"not null;index"`
	CreatedAt    time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime:false"`
}

func (participantRow) TableName() string { return "participants" }

func participantToRow(p model.Participant) participantRow {
	return participantRow{
		ID:           p.ID,
		Name:         p.Name,
		Avatar:       p.Avatar,
		Color:        p.Color,
		TotalPlays:   p.TotalPlays,
		LastPlayedAt: p.LastPlayedAt,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (r participantRow) toModel() model.Participant {
	return model.Participant{
		ID:           r.ID,
		Name:         r.Name,
		Avatar:       r.Avatar,
		Color:        r.Color,
		TotalPlays:   r.TotalPlays,
		LastPlayedAt: r.LastPlayedAt,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type sessionRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Date       string    `gorm:"size:10;not null;uniqueIndex"` // YYYY-MM-DD
	DJID       string    `gorm:"column:dj_id;size:36;index"`
	DJName     string    `gorm:"column:dj_name;size:191"`
	Status     string    `gorm:"size:16;not null;index"`
	YoutubeURL string    `gorm:"size:512"`
	VideoID    string    `gorm:"size:32"`
	Title      string    `gorm:"size:255"`
	Artist     string    `gorm:"size:255"`
	SkipReason string    `gorm:"size:255"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (sessionRow) TableName() string { return "sessions" }

type historyRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Seq        int64     `gorm:"not null;index"`
	SessionID  string    `gorm:"size:36;index"`
	DJName     string    `gorm:"column:dj_name;size:191"`
	Title      string    `gorm:"size:255"`
	Artist     string    `gorm:"size:255"`
	YoutubeURL string    `gorm:"size:512"`
	VideoID    string    `gorm:"size:32"`
	PlayedAt   time.Time `gorm:"not null;index"`
}

func (historyRow) TableName() string { return "history" }

func historyToRow(e model.HistoryEntry, seq int64) historyRow {
	return historyRow{
		ID:         e.ID,
		Seq:        seq,
		SessionID:  e.SessionID,
		DJName:     e.DJName,
		Title:      e.Title,
		Artist:     e.Artist,
		YoutubeURL: e.YoutubeURL,
		VideoID:    e.VideoID,
		PlayedAt:   e.PlayedAt,
	}
}

func (r historyRow) toModel() model.HistoryEntry {
	return model.HistoryEntry{
		ID:         r.ID,
		SessionID:  r.SessionID,
		DJName:     r.DJName,
		Title:      r.Title,
		Artist:     r.Artist,
		YoutubeURL: r.YoutubeURL,
		VideoID:    r.VideoID,
		PlayedAt:   r.PlayedAt,
	}
}

type settingsRow struct {
	ID                   string  `gorm:"primaryKey;size:16"`
	WeightLastPlayed     float64 `gorm:"not null"`
	WeightTotalPlays     float64 `gorm:"not null"`
	LastRegistrationDate string  `gorm:"size:10"`
	RegistrationLocked   bool    `gorm:"not null"`
}

func (settingsRow) TableName() string { return "settings" }

func (r settingsRow) toModel() model.Settings {
	return model.Settings{
		Probability: model.ProbabilitySettings{
			WeightLastPlayed: r.WeightLastPlayed,
			WeightTotalPlays: r.WeightTotalPlays,
		},
		Lock: model.RegistrationLock{
			LastRegistrationDate: r.LastRegistrationDate,
			RegistrationLocked:   r.RegistrationLocked,
		},
	}
}

func settingsToRow(s model.Settings) settingsRow {
	return settingsRow{
		ID:                   model.SettingsID,
		WeightLastPlayed:     s.Probability.WeightLastPlayed,
		WeightTotalPlays:     s.Probability.WeightTotalPlays,
		LastRegistrationDate: s.Lock.LastRegistrationDate,
		RegistrationLocked:   s.Lock.RegistrationLocked,
	}
}
