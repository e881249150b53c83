package model

import "errors"

// Error kinds shared by every layer. Match with errors.Is.
var (
	// ErrValidation marks malformed input: bad URL, bad date, out-of-range weight.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an unknown session or participant id.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation, e.g. a second session for a date.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition marks a lifecycle transition from a terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNoActiveParticipants marks a selection over an empty active roster.
	// It is reported as a result status, never returned by the probability engine.
	ErrNoActiveParticipants = errors.New("no active participants")
)
