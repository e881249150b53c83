package session

import (
	"context"
	"time"

	"github.com/okian/blindtest/internal/domain/model"
)

// Store is the persistence the state machine consumes. The date uniqueness
// guard lives here: CreateSession must fail with model.ErrConflict when the
// date is taken, whatever the machine checked beforehand.
type Store interface {
	// GetSession returns model.ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (model.Session, error)
	// FindSessionByDate returns model.ErrNotFound when the date is free.
	FindSessionByDate(ctx context.Context, date time.Time) (model.Session, error)
	CreateSession(ctx context.Context, s model.Session) (model.Session, error)
	UpdateSession(ctx context.Context, s model.Session) (model.Session, error)
	AppendHistoryEntry(ctx context.Context, e model.HistoryEntry) (model.HistoryEntry, error)

	// Atomically runs fn so that every store call made with the ctx it
	// receives commits together or not at all.
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}
