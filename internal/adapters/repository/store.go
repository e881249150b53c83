// Package repository persists participants, settings, sessions and history.
package repository

import (
	"context"
	"time"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/session"
	"github.com/okian/blindtest/pkg/metrics"
)

// Store provides read/write access to every persisted entity. All methods
// accept a ctx produced by Atomically to join its transaction.
type Store interface {
	session.Store

	// ListParticipants returns participants ordered by name.
	ListParticipants(ctx context.Context, activeOnly bool) ([]model.Participant, error)
	// GetParticipant returns ErrNotFound for unknown ids.
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
	// CreateParticipant returns ErrConflict when the name is taken.
	CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error)
	UpdateParticipant(ctx context.Context, p model.Participant) (model.Participant, error)
	// RecordPlay increments the play count and moves LastPlayedAt forward to
	// playedAt. An older playedAt still counts but leaves LastPlayedAt alone.
	RecordPlay(ctx context.Context, id string, playedAt time.Time) (model.Participant, error)

	// GetSettings returns the stored settings, or the configured defaults when
	// none were saved yet.
	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateProbabilitySettings(ctx context.Context, ps model.ProbabilitySettings) (model.Settings, error)
	// LockRegistration upserts the lock for date (YYYY-MM-DD).
	LockRegistration(ctx context.Context, date string) (model.Settings, error)

	// ListSessions returns sessions with from <= date <= to ordered by date.
	// A zero bound is open.
	ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error)
	// ListHistory returns entries newest first. limit <= 0 means all.
	ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)

	Close() error
}

// advanceLastPlayed applies the play-recording rule shared by both stores.
func advanceLastPlayed(p model.Participant, playedAt time.Time) model.Participant {
	p.TotalPlays++
	if p.LastPlayedAt == nil || playedAt.After(*p.LastPlayedAt) {
		t := playedAt
		p.LastPlayedAt = &t
	}
	return p
}

func observe(operation string, start time.Time) {
	metrics.RecordRepositoryLatency(operation, float64(time.Since(start).Microseconds())/1000)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)

// DriverMemory selects the in-process store.
const DriverMemory = "memory"

// Open builds the Store named by driver. dsn is ignored for DriverMemory.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	if driver == "" || driver == DriverMemory {
		return NewMemoryStore(ctx, opts...), nil
	}
	db, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, err
	}
	return NewGormStore(ctx, db, opts...)
}
