package session

import (
	"fmt"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
)

// ConflictError reports that a session already exists for the requested
// date. Callers that want create-or-update use Existing.ID with Reassign.
type ConflictError struct {
	Existing model.Session
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session already exists for %s (id %s, status %s)",
		calendar.FormatDate(e.Existing.Date), e.Existing.ID, e.Existing.Status)
}

// Unwrap lets errors.Is(err, model.ErrConflict) match.
func (e *ConflictError) Unwrap() error { return model.ErrConflict }

// TransitionError reports a transition attempted from a non-pending state.
type TransitionError struct {
	SessionID string
	From      model.SessionStatus
	To        model.SessionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session %s: cannot move from %s to %s", e.SessionID, e.From, e.To)
}

// Unwrap lets errors.Is(err, model.ErrInvalidTransition) match.
func (e *TransitionError) Unwrap() error { return model.ErrInvalidTransition }
